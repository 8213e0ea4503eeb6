// Copyright 2016-present Oliver Eilhard. All rights reserved.
// Use of this source code is governed by a MIT-license.
// See http://olivere.mit-license.org/license.txt for details.

package jobqueue

import (
	"github.com/rs/zerolog/log"
)

// Logger defines an interface that implementers can use to redirect
// logging into their own application.
type Logger interface {
	Printf(format string, v ...interface{})
}

// defaultLogger implements the Logger interface by writing debug messages
// to the global zerolog logger. It is silent unless the application
// enables the debug level.
type defaultLogger struct{}

func (defaultLogger) Printf(format string, v ...interface{}) {
	log.Debug().Msgf(format, v...)
}
