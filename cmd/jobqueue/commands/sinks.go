package commands

import (
	"fmt"

	"github.com/olivere/jobqueue/v2/history"
	"github.com/olivere/jobqueue/v2/internal/config"
	"github.com/olivere/jobqueue/v2/mongodb"
	"github.com/olivere/jobqueue/v2/mysql"
	"github.com/olivere/jobqueue/v2/sqlite"
)

// openSink opens the history store selected by cfg.
func openSink(cfg *config.Config) (history.Sink, error) {
	switch cfg.HistoryDriver {
	case "", "memory":
		return history.NewMemorySink(), nil
	case "sqlite":
		return sqlite.NewStore(cfg.HistoryDSN)
	case "mysql":
		var options []mysql.StoreOption
		if cfg.LogLevel == "debug" || cfg.LogLevel == "trace" {
			options = append(options, mysql.SetDebug(true))
		}
		return mysql.NewStore(cfg.HistoryDSN, options...)
	case "mongodb":
		return mongodb.NewStore(cfg.HistoryDSN)
	default:
		return nil, fmt.Errorf("unsupported history driver %q", cfg.HistoryDriver)
	}
}
