package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_InvalidLevel(t *testing.T) {
	logger, err := New(Options{Env: "development", Level: "loud"})

	assert.Error(t, err)
	assert.Nil(t, logger)
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	logger, err := New(Options{Env: "production", Level: "info", File: path})
	require.NoError(t, err)

	logger.Named("checkout").Info("order paid", zap.String("order_id", "order_1"))
	Sync(logger)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"order_id":"order_1"`)
	assert.Contains(t, string(data), `"logger":"checkout"`)
}

func TestNew_ReplacesGlobal(t *testing.T) {
	logger, err := New(Options{Env: "development", Level: "debug"})
	require.NoError(t, err)

	assert.Same(t, logger, zap.L())
}
