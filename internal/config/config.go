// Package config loads the settings of the jobqueue command.
//
// Sources are merged in order of increasing precedence: defaults, a YAML
// file, environment variables, and command-line flags. Environment
// variables carry the JOBQUEUE_ prefix, with underscores standing for
// dashes, e.g. JOBQUEUE_HISTORY_DSN sets "history-dsn".
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables.
const EnvPrefix = "JOBQUEUE_"

var validate = validator.New()

// Config holds the settings of the jobqueue command.
type Config struct {
	LogLevel      string  `koanf:"log-level" yaml:"log-level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Output        string  `koanf:"output" yaml:"output" validate:"oneof=text json yaml"`
	Concurrency   int     `koanf:"concurrency" yaml:"concurrency" validate:"min=1"`
	Jobs          int     `koanf:"jobs" yaml:"jobs" validate:"min=0"`
	TimeScale     float64 `koanf:"time-scale" yaml:"time-scale" validate:"gt=0"`
	FailureRate   float64 `koanf:"failure-rate" yaml:"failure-rate" validate:"min=0,max=1"`
	PanicRate     float64 `koanf:"panic-rate" yaml:"panic-rate" validate:"min=0,max=1"`
	Seed          int64   `koanf:"seed" yaml:"seed"`
	Addr          string  `koanf:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
	HistoryDriver string  `koanf:"history-driver" yaml:"history-driver" validate:"oneof=memory sqlite mysql mongodb"`
	HistoryDSN    string  `koanf:"history-dsn" yaml:"history-dsn"`
}

// Default returns the configuration used when no other source sets a value.
func Default() Config {
	return Config{
		LogLevel:      "error",
		Output:        "text",
		Concurrency:   6,
		Jobs:          12,
		TimeScale:     1,
		HistoryDriver: "memory",
	}
}

func defaultsAsMap() map[string]interface{} {
	def := Default()
	return map[string]interface{}{
		"log-level":      def.LogLevel,
		"output":         def.Output,
		"concurrency":    def.Concurrency,
		"jobs":           def.Jobs,
		"time-scale":     def.TimeScale,
		"failure-rate":   def.FailureRate,
		"panic-rate":     def.PanicRate,
		"seed":           def.Seed,
		"addr":           def.Addr,
		"history-driver": def.HistoryDriver,
		"history-dsn":    def.HistoryDSN,
	}
}

// Load merges all sources and validates the result. path is the YAML
// file to read; it is skipped if empty. flags may be nil.
func Load(flags *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsAsMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: error loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: error checking config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: error loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(key string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(key, EnvPrefix)), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("config: error loading environment variables: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("config: error loading command-line flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: invalid %s: failed on %q", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	if c.HistoryDriver != "memory" && c.HistoryDSN == "" {
		return fmt.Errorf("config: history driver %q requires a DSN", c.HistoryDriver)
	}
	return nil
}
