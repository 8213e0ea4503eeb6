// Package logging configures zerolog for the jobqueue command.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// logWriter stores the current log writer globally
	logWriter io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
)

// SetLogWriter sets the writer used by the next call to Configure.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

// Configure sets the global zerolog logger and level. An empty level
// means "error".
func Configure(levelStr string) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	logContext := zerolog.New(logWriter).With().Timestamp()
	if level <= zerolog.DebugLevel {
		logContext = logContext.Caller()
	}
	log.Logger = logContext.Logger().Level(level)
	zerolog.DefaultContextLogger = &log.Logger
	return nil
}

// ParseLevel converts a string log level to zerolog.Level.
func ParseLevel(levelStr string) (zerolog.Level, error) {
	if levelStr == "" {
		return zerolog.ErrorLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return zerolog.ErrorLevel, fmt.Errorf("logging: invalid level %q: %w", levelStr, err)
	}
	return level, nil
}

// Adapter logs Printf-style messages to a zerolog logger at a fixed level.
// It satisfies jobqueue.Logger.
type Adapter struct {
	Logger zerolog.Logger
	Level  zerolog.Level
}

// NewAdapter returns an Adapter writing to the global logger with the
// given component name.
func NewAdapter(component string, level zerolog.Level) *Adapter {
	return &Adapter{
		Logger: log.Logger.With().Str("component", component).Logger(),
		Level:  level,
	}
}

// Printf logs a formatted message.
func (a *Adapter) Printf(format string, v ...interface{}) {
	a.Logger.WithLevel(a.Level).Msgf(format, v...)
}
