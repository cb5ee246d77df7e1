package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNewLogger(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.json")
	cfg := DefaultConfig()
	cfg.Level = "warn"
	cfg.OutputPaths = []string{out}

	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	logger.Named("sync").With(zap.String("run_id", "r-1")).Info("dropped")
	logger.Named("sync").With(zap.String("run_id", "r-1")).Warn("kept")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"logger":"sync"`)
	assert.Contains(t, string(data), `"run_id":"r-1"`)
}

func TestNewNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()
	assert.NotPanics(t, func() { logger.Error("ignored") })
}
