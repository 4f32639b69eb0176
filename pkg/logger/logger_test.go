package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWritesJSONFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() {
		Log = prev
		_ = SetLevel("info")
	})

	path := filepath.Join(t.TempDir(), "logs", "iris.log")
	require.NoError(t, Init("info", "json", path))

	Debug("hidden")
	Info("Alert reported", zap.String("alert_id", "a1"))
	Named("scheduler").Warn("Scheduled job failed")
	Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "Alert reported", first["message"])
	assert.Equal(t, "a1", first["alert_id"])
	assert.Contains(t, first, "timestamp")

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "scheduler", second["logger"])

	require.NoError(t, SetLevel("debug"))
	Debug("now visible")
	Sync()
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "now visible")
}

func TestInitRejectsBadSettings(t *testing.T) {
	assert.Error(t, Init("loud", "json", "stdout"))
	assert.Error(t, Init("info", "xml", "stdout"))
}
