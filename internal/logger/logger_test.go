package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLogLevel("DEBUG"))
	assert.Equal(t, WARN, ParseLogLevel("warning"))
	assert.Equal(t, INFO, ParseLogLevel("verbose"))
	assert.Equal(t, zapcore.ErrorLevel, zapLevelFromLogLevel(ParseLogLevel("error")))
}

func TestNewFileOutputWritesToRotator(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	l, err := New(Config{Level: "info", Output: OutputFile, File: file})
	require.NoError(t, err)

	l.Info("pool %s created", "0xabc")
	l.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pool 0xabc created")
}

func TestNewFileOutputRequiresPath(t *testing.T) {
	_, err := New(Config{Output: OutputFile})
	assert.Error(t, err)
}
