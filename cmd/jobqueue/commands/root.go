// Package commands implements the jobqueue command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/olivere/jobqueue/v2/internal/config"
	"github.com/olivere/jobqueue/v2/internal/logging"
)

const cliExecutable = "jobqueue"

// globals is shared by all subcommands; cfg is set before any of them runs.
type globals struct {
	configFile string
	cfg        *config.Config
}

// NewCommand constructs the top-level jobqueue CLI command.
func NewCommand() *cobra.Command {
	g := &globals{}
	def := config.Default()

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Run jobs with a concurrency limit and keep a history of runs",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), g.configFile)
			if err != nil {
				return err
			}
			if err := logging.Configure(cfg.LogLevel); err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}
			g.cfg = cfg
			return nil
		},
	}

	cmd.SilenceUsage = true

	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.configFile, "config", "c", "", "Configuration file path (YAML)")
	flags.String("log-level", def.LogLevel, "Log level (trace, debug, info, warn, error)")
	flags.StringP("output", "o", def.Output, "Output format (text, json, yaml)")
	flags.String("history-driver", def.HistoryDriver, "History store (memory, sqlite, mysql, mongodb)")
	flags.String("history-dsn", def.HistoryDSN, "Connection string or file of the history store")

	cmd.AddCommand(newRunCommand(g))
	cmd.AddCommand(newHistoryCommand(g))
	cmd.AddCommand(newVersionCommand())

	return cmd
}
