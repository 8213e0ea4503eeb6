package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/olivere/jobqueue/v2"
	"github.com/olivere/jobqueue/v2/history"
	"github.com/olivere/jobqueue/v2/internal/config"
	"github.com/olivere/jobqueue/v2/internal/logging"
	"github.com/olivere/jobqueue/v2/ui/server"
)

func newRunCommand(g *globals) *cobra.Command {
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo jobs and print a report",
		Long: `Run creates a number of demo jobs that wait for a few seconds each and
runs them with a concurrency limit. Progress is printed as jobs start and
finish, followed by a report of all jobs once the queue is done.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDemo(ctx, cmd.OutOrStdout(), g.cfg)
		},
	}

	flags := cmd.Flags()
	flags.Int("concurrency", def.Concurrency, "Maximum number of jobs running at the same time")
	flags.Int("jobs", def.Jobs, "Number of demo jobs")
	flags.Float64("time-scale", def.TimeScale, "Factor applied to the duration of each demo job")
	flags.Float64("failure-rate", def.FailureRate, "Probability of a demo job to fail in [0.0,1.0]")
	flags.Float64("panic-rate", def.PanicRate, "Probability of a demo job to panic in [0.0,1.0]")
	flags.Int64("seed", def.Seed, "Random seed for failures and panics (0 picks one)")
	flags.String("addr", def.Addr, "Serve live progress over websockets at this address, e.g. 127.0.0.1:12345")

	return cmd
}

// runDemo runs the demo queue and writes the report to out.
func runDemo(ctx context.Context, out io.Writer, cfg *config.Config) error {
	jobs := demoJobs(cfg)
	q, err := jobqueue.NewQueue(jobs, cfg.Concurrency,
		jobqueue.SetLogger(logging.NewAdapter("queue", zerolog.DebugLevel)),
	)
	if err != nil {
		return err
	}

	sink, err := openSink(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer sink.Close()
	recorded := history.Attach(ctx, q, sink, logging.NewAdapter("history", zerolog.WarnLevel))

	var (
		mu    sync.Mutex
		final jobqueue.Stats
	)
	q.Reporter().On(jobqueue.EventQueueDone, func(e *jobqueue.Event) {
		mu.Lock()
		final = e.Stats
		mu.Unlock()
	})
	if cfg.Output == "text" {
		started := color.New(color.FgCyan).SprintFunc()
		finished := color.New(color.FgGreen).SprintFunc()
		q.Reporter().On(jobqueue.EventJobStarted, func(e *jobqueue.Event) {
			fmt.Fprintln(out, started("Job Start for: "), e.Job.ID(), e.Job.Name())
		})
		q.Reporter().On(jobqueue.EventJobFinished, func(e *jobqueue.Event) {
			fmt.Fprintln(out, finished("Job Done for: "), e.Job.ID(), e.Job.Name())
		})
	}

	eg, egctx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(egctx)
	defer stopServer()
	if cfg.Addr != "" {
		srv := server.New(q)
		eg.Go(func() error {
			return srv.Serve(serverCtx, cfg.Addr)
		})
	}
	eg.Go(func() error {
		defer stopServer()
		return q.Run(egctx)
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	run := <-recorded
	if run == nil {
		mu.Lock()
		run = history.NewRun(q, final)
		mu.Unlock()
	}
	log.Debug().Str("run", run.ID).Int("succeeded", run.Succeeded).Int("failed", run.Failed).Msg("run complete")

	if ok, err := writeStructured(out, cfg.Output, run); ok {
		return err
	}
	writeRunText(out, run)
	return nil
}
