package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/account-service/internal/config"
)

func TestBuildWritesJSONToConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	var console bytes.Buffer

	log, closeFn, err := build(config.LogConfig{Level: "info", Filename: path, MaxSize: 1}, &console)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("account created", zap.String("account_id", "abc"))
	closeFn()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(console.Bytes()), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "account created", entry["msg"])
	assert.Equal(t, "abc", entry["account_id"])

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"account created"`)
	assert.NotContains(t, string(raw), "hidden")
}

func TestBuildRejectsUnknownLevel(t *testing.T) {
	_, _, err := build(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}
