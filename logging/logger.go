// Package logging builds the logrus logger shared by every command.
// Logs always go to stderr so stdout carries nothing but the review report.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options controls level and output format.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Out    io.Writer
}

// New creates a logger. An empty level means info, an empty format means text.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	levelName := opts.Level
	if levelName == "" {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	logger.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", opts.Format)
	}

	return logger, nil
}

// Discard returns a logger that drops everything. Used by tests and callers without a logger.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
