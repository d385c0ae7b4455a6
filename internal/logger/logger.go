package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus so packages depend on one local type.
type Logger struct {
	*logrus.Logger
}

// New builds a logger from the configured level and format. Unknown levels
// fall back to info.
func New(level, format string) *Logger {
	log := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{Logger: log}
}

// Discard returns a logger that drops everything; test use.
func Discard() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{Logger: log}
}
