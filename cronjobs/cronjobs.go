// Package cronjobs runs the review batch on a cron schedule.
package cronjobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"go-reviewlens/failure"
)

// Job is one scheduled batch run.
type Job func(ctx context.Context) error

// Scheduler wraps a running cron instance.
type Scheduler struct {
	c *cron.Cron
}

// Start schedules job on spec (standard five-field syntax or descriptors such
// as "@hourly" and "@every 30m"). Runs never overlap: a tick that fires while
// the previous run is still going is skipped. A failed run is logged and the
// next tick runs as usual.
func Start(ctx context.Context, spec string, job Job, logger *logrus.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, failure.Config("parse schedule", fmt.Errorf("%q: %w", spec, err))
	}

	cl := cronLogger{logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	_, err := c.AddFunc(spec, func() {
		logger.WithField("schedule", spec).Info("CronJob: review batch running")
		if err := job(ctx); err != nil {
			logger.WithError(err).WithField("kind", failure.KindOf(err)).Error("scheduled review batch failed")
		}
	})
	if err != nil {
		return nil, failure.Config("schedule review batch", err)
	}

	c.Start()
	return &Scheduler{c: c}, nil
}

// Next returns when the job fires next.
func (s *Scheduler) Next() string {
	entries := s.c.Entries()
	if len(entries) == 0 {
		return ""
	}
	return entries[0].Next.String()
}

// Stop stops scheduling and waits for a running batch to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	l *logrus.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.WithError(err).WithFields(fields(keysAndValues)).Error("cron: " + msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
