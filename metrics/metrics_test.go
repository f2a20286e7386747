package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCall(t *testing.T) {
	r := New()

	r.ObserveCall("azure", "sentiment", 120*time.Millisecond, nil)
	r.ObserveCall("azure", "sentiment", 80*time.Millisecond, nil)
	r.ObserveCall("azure", "entities", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.calls.WithLabelValues("azure", "sentiment", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.calls.WithLabelValues("azure", "entities", OutcomeError)))
	assert.Equal(t, 2, testutil.CollectAndCount(r.duration))
}

func TestFileDone(t *testing.T) {
	r := New()
	r.FileDone(nil)
	r.FileDone(nil)
	r.FileDone(errors.New("unreadable"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.files.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.files.WithLabelValues(OutcomeError)))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveCall("replay", "language", time.Millisecond, nil)
	r.RunFinished(time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "reviewlens.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `reviewlens_remote_calls_total{operation="language",outcome="success",provider="replay"} 1`)
	assert.Contains(t, string(data), "reviewlens_last_run_timestamp_seconds 1.7e+09")
}
