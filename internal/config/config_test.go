package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: "http://chat.local:9000/"
  page_size: 50
realtime:
  reconnect_delay: 2s
client:
  id_generator: sonyflake
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://chat.local:9000", cfg.API.BaseURL)
	assert.Equal(t, 50, cfg.API.PageSize)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Realtime.ReconnectDelay)
	assert.Equal(t, 10*time.Second, cfg.Realtime.HeartbeatIncoming)
	assert.Equal(t, "/user/queue/messages", cfg.Realtime.UserDestination)
	assert.Equal(t, "sonyflake", cfg.Client.IdGenerator)
	assert.Equal(t, 350*time.Millisecond, cfg.Client.SearchDebounce)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("NEXOCHAT_API_BASE_URL", "http://env.local")
	t.Setenv("NEXOCHAT_REALTIME_URL", "ws://env.local/ws/websocket")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://env.local", cfg.API.BaseURL)
	assert.Equal(t, "ws://env.local/ws/websocket", cfg.Realtime.URL)
}
