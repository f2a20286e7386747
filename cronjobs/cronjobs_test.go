package cronjobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-reviewlens/failure"
)

func TestStart_InvalidSpec(t *testing.T) {
	logger, _ := test.NewNullLogger()

	_, err := Start(context.Background(), "every now and then", func(context.Context) error { return nil }, logger)
	require.Error(t, err)
	assert.Equal(t, failure.KindConfig, failure.KindOf(err))
}

func TestStart_RunsAndLogsFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	var runs atomic.Int32

	s, err := Start(context.Background(), "@every 1s", func(context.Context) error {
		runs.Add(1)
		return failure.IO("list reviews", errors.New("no such directory"))
	}, logger)
	require.NoError(t, err)
	assert.NotEmpty(t, s.Next())

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
	s.Stop()

	var failed bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Message == "scheduled review batch failed" {
			failed = true
			assert.Equal(t, failure.KindIO, e.Data["kind"])
		}
	}
	assert.True(t, failed)
}

func TestFields(t *testing.T) {
	got := fields([]interface{}{"now", 1, "entry", 2, "dangling"})
	assert.Equal(t, logrus.Fields{"now": 1, "entry": 2}, got)
}
