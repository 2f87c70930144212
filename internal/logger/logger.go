// Package logger holds the logrus helpers shared by the library packages.
package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

// OrDiscard returns log, or a discarding logger when log is nil.
func OrDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return Discard()
	}

	return log
}
