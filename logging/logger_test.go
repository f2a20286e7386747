package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		level   logrus.Level
		wantErr bool
	}{
		{name: "defaults to info", opts: Options{}, level: logrus.InfoLevel},
		{name: "debug", opts: Options{Level: "debug"}, level: logrus.DebugLevel},
		{name: "warn json", opts: Options{Level: "warn", Format: "json"}, level: logrus.WarnLevel},
		{name: "bad level", opts: Options{Level: "loud"}, wantErr: true},
		{name: "bad format", opts: Options{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.level, logger.GetLevel())
		})
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json", Out: &buf})
	require.NoError(t, err)

	logger.WithField("file", "review1.txt").Info("analyzing review")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "analyzing review", entry["msg"])
	assert.Equal(t, "review1.txt", entry["file"])
	assert.Equal(t, "info", entry["level"])
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() { logger.Error("dropped") })
}
