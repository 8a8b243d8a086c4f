package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("infoo"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")

	log := New(Config{Level: "debug", File: path, MaxSize: 1, MaxBackups: 1, MaxAge: 1})
	require.NotNil(t, log)
	log.Debug("register group read")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "register group read")
	assert.Contains(t, string(data), "DEBUG")
}

func TestNewRespectsLevel(t *testing.T) {
	log := New(Config{Level: "error"})
	assert.False(t, log.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, log.Core().Enabled(zapcore.ErrorLevel))
}
