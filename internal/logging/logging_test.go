package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finqa.log")
	log := New(Options{FilePath: path})

	log.Info("article fetched", zap.String("request_id", "abc"))
	log.Debug("hidden below info")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"article fetched"`)
	assert.Contains(t, string(data), `"request_id":"abc"`)
	assert.NotContains(t, string(data), "hidden below info")
}

func TestNew_DebugLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finqa.log")
	log := New(Options{FilePath: path, Debug: true})

	log.Debug("usage")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"level":"DEBUG"`)
}

func TestNew_NoOutputsIsNop(t *testing.T) {
	log := New(Options{})
	assert.False(t, log.Core().Enabled(zap.ErrorLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}
