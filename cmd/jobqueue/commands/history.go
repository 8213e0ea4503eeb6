package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/olivere/jobqueue/v2/history"
)

func newHistoryCommand(g *globals) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List past runs, or show a single run with its jobs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.cfg.HistoryDriver == "memory" {
				return errors.New("history: the memory store keeps no runs; use --history-driver")
			}
			sink, err := openSink(g.cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer sink.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				finder, ok := sink.(history.Finder)
				if !ok {
					return fmt.Errorf("history: %s store cannot look up runs", g.cfg.HistoryDriver)
				}
				run, err := finder.Find(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ok, err := writeStructured(out, g.cfg.Output, run); ok {
					return err
				}
				writeRunText(out, run)
				return nil
			}

			lister, ok := sink.(history.Lister)
			if !ok {
				return fmt.Errorf("history: %s store cannot list runs", g.cfg.HistoryDriver)
			}
			runs, err := lister.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if ok, err := writeStructured(out, g.cfg.Output, runs); ok {
				return err
			}
			writeRunsText(out, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")

	return cmd
}
