package rpcclient

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seedbox/torrentd/internal/metainfo"
	"github.com/seedbox/torrentd/internal/rpctypes"
	"github.com/seedbox/torrentd/torrent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*torrent.Session, *httptest.Server) {
	cfg := torrent.DefaultConfig
	cfg.Database = ""
	cfg.TickInterval = time.Hour
	s, err := torrent.New(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(s.HTTPHandler())
	t.Cleanup(func() {
		srv.Close()
		s.Close()
	})
	return s, srv
}

func testTorrent(t *testing.T) []byte {
	content := []byte("This is a test file for torrent testing.")
	info, err := metainfo.NewInfoBytes("test-file.txt", bytes.NewReader(content), int64(len(content)), 32768, false)
	require.NoError(t, err)
	b, err := metainfo.Encode(info, [][]string{{"http://tracker.example.com:8080/announce"}}, "")
	require.NoError(t, err)
	return b
}

func TestClient(t *testing.T) {
	_, srv := newTestServer(t)
	c := New(srv.URL)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	version, err := c.WaitReady(ctx)
	require.NoError(t, err)
	assert.Equal(t, torrent.Version, version)

	b := testTorrent(t)
	tor, err := c.AddTorrent(bytes.NewReader(b), &rpctypes.AddTorrentOptions{Stopped: true, UploadLimit: 100})
	require.NoError(t, err)
	assert.Equal(t, "test-file.txt", tor.Name)
	assert.Equal(t, "paused", tor.Status)
	assert.Equal(t, int64(100), tor.UploadSpeedLimit)

	torrents, err := c.ListTorrents()
	require.NoError(t, err)
	require.Len(t, torrents, 1)
	assert.Equal(t, tor.ID, torrents[0].ID)

	file, err := c.GetTorrentFile(tor.ID)
	require.NoError(t, err)
	assert.Equal(t, b, file)

	magnet, err := c.GetMagnet(tor.ID)
	require.NoError(t, err)
	assert.Contains(t, magnet, tor.InfoHash)

	require.NoError(t, c.ResumeTorrent(tor.ID))
	require.NoError(t, c.UpdateLimits(tor.ID, 10, 20))
	got, err := c.GetTorrent(tor.ID)
	require.NoError(t, err)
	assert.Equal(t, "downloading", got.Status)
	assert.Equal(t, int64(10), got.DownloadSpeedLimit)

	require.NoError(t, c.PauseTorrent(tor.ID))
	require.NoError(t, c.SetGlobalLimits(1000, 2000))
	limits, err := c.GetGlobalLimits()
	require.NoError(t, err)
	assert.Equal(t, rpctypes.GlobalLimits{DownloadLimit: 1000, UploadLimit: 2000}, *limits)

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDownloads)
	assert.Equal(t, 1, stats.PausedDownloads)

	sessionStats, err := c.GetSessionStats()
	require.NoError(t, err)
	assert.Equal(t, 1, sessionStats.Torrents)

	require.NoError(t, c.RemoveTorrent(tor.ID))
	_, err = c.GetTorrent(tor.ID)
	assert.Equal(t, 1, ErrorCode(err))
	assert.Equal(t, 0, ErrorCode(nil))
}

func TestWaitReadyTimeout(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close()
	c := New(srv.URL)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := c.WaitReady(ctx)
	assert.Error(t, err)
}
