package console

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seedbox/torrentd/internal/metainfo"
	"github.com/seedbox/torrentd/rpcclient"
	"github.com/seedbox/torrentd/torrent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresh(t *testing.T) {
	cfg := torrent.DefaultConfig
	cfg.Database = ""
	cfg.TickInterval = time.Hour
	s, err := torrent.New(cfg)
	require.NoError(t, err)
	defer s.Close()
	srv := httptest.NewServer(s.HTTPHandler())
	defer srv.Close()
	clt := rpcclient.New(srv.URL)
	defer clt.Close()

	var ids []string
	for _, name := range []string{"a", "b"} {
		info, err := metainfo.NewInfoBytes(name, bytes.NewReader([]byte(name)), 1, 32768, false)
		require.NoError(t, err)
		b, err := metainfo.Encode(info, nil, "")
		require.NoError(t, err)
		tor, err := s.AddTorrent(bytes.NewReader(b), nil)
		require.NoError(t, err)
		ids = append(ids, tor.ID())
	}

	c := New(clt)
	c.refresh()
	require.NoError(t, c.err)
	require.Len(t, c.torrents, 2)
	c.selected = 1

	require.NoError(t, s.RemoveTorrent(ids[1]))
	c.refresh()
	assert.Len(t, c.torrents, 1)
	assert.Equal(t, 0, c.selected)
	assert.Equal(t, ids[0], c.torrents[0].ID)

	srv.Close()
	c.refresh()
	assert.Error(t, c.err)
	assert.Len(t, c.torrents, 1)
}
