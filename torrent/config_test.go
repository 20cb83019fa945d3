package torrent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
port: 9000
tick-interval: 500ms
max-active-downloads: 3
download-limit: 1048576
on-complete-cmd: ["notify-send", "done"]
cors-origins: ["http://localhost:3000"]
`)
	require.NoError(t, os.WriteFile(filename, data, 0600))

	cfg, err := LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 3, cfg.MaxActiveDownloads)
	assert.Equal(t, int64(1<<20), cfg.DownloadLimit)
	assert.Equal(t, []string{"notify-send", "done"}, cfg.OnCompleteCmd)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	// not set in file
	assert.Equal(t, DefaultConfig.Host, cfg.Host)
	assert.Equal(t, DefaultConfig.MaxTorrentSize, cfg.MaxTorrentSize)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig.Port, cfg.Port)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig
	assert.NoError(t, cfg.validate())

	cfg.TickInterval = 0
	assert.Error(t, cfg.validate())

	cfg = DefaultConfig
	cfg.SwarmConnectDelay = -time.Second
	assert.Error(t, cfg.validate())

	cfg = DefaultConfig
	cfg.MaxActiveDownloads = -1
	assert.Error(t, cfg.validate())

	_, err := New(cfg)
	assert.Error(t, err)
}
