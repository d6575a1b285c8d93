package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", "json", "")
	assert.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailer.log")

	logger, err := New("info", "console", path)
	require.NoError(t, err)

	logger.Info("batch complete", zap.Int("sent", 3))
	logger.Debug("filtered out")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"batch complete"`)
	assert.Contains(t, string(data), `"sent":3`)
	assert.NotContains(t, string(data), "filtered out")
}
