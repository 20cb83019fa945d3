// Package rpcclient is the client of the JSON-RPC endpoint of torrentd.
package rpcclient

import (
	"context"
	"encoding/base64"
	"io"
	"time"

	"github.com/cenkalti/backoff/v3"
	"github.com/powerman/rpc-codec/jsonrpc2"
	"github.com/seedbox/torrentd/internal/rpctypes"
)

// Client is a JSON-RPC client for calling methods on a running torrentd server.
type Client struct {
	client *jsonrpc2.Client
	addr   string
}

// New returns a new Client for the server at addr, e.g. "http://127.0.0.1:8001".
func New(addr string) *Client {
	return &Client{
		client: jsonrpc2.NewHTTPClient(addr + "/rpc"),
		addr:   addr,
	}
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Close the client.
func (c *Client) Close() error {
	return c.client.Close()
}

// WaitReady retries the server until it responds or ctx is done.
// It returns the server version.
func (c *Client) WaitReady(ctx context.Context) (string, error) {
	var version string
	b := &backoff.ExponentialBackOff{
		InitialInterval:     50 * time.Millisecond,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         2 * time.Second,
		MaxElapsedTime:      0, // until ctx is done
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	err := backoff.Retry(func() error {
		var err error
		version, err = c.ServerVersion()
		return err
	}, backoff.WithContext(b, ctx))
	return version, err
}

// ServerVersion returns the version of the torrentd server.
func (c *Client) ServerVersion() (string, error) {
	var reply string
	return reply, c.client.Call("Session.Version", struct{}{}, &reply)
}

// ListTorrents returns all torrents in the session.
func (c *Client) ListTorrents() ([]rpctypes.Torrent, error) {
	var reply rpctypes.ListTorrentsResponse
	return reply.Torrents, c.client.Call("Session.ListTorrents", rpctypes.ListTorrentsRequest{}, &reply)
}

// AddTorrent adds a new torrent by reading .torrent file from f.
func (c *Client) AddTorrent(f io.Reader, opt *rpctypes.AddTorrentOptions) (*rpctypes.Torrent, error) {
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	args := rpctypes.AddTorrentRequest{Torrent: base64.StdEncoding.EncodeToString(b)}
	if opt != nil {
		args.AddTorrentOptions = *opt
	}
	var reply rpctypes.AddTorrentResponse
	return &reply.Torrent, c.client.Call("Session.AddTorrent", args, &reply)
}

// AddURI adds a new torrent by downloading its .torrent file from uri.
func (c *Client) AddURI(uri string, opt *rpctypes.AddTorrentOptions) (*rpctypes.Torrent, error) {
	args := rpctypes.AddURIRequest{URI: uri}
	if opt != nil {
		args.AddTorrentOptions = *opt
	}
	var reply rpctypes.AddURIResponse
	return &reply.Torrent, c.client.Call("Session.AddURI", args, &reply)
}

// GetTorrent returns the state of a torrent.
func (c *Client) GetTorrent(id string) (*rpctypes.Torrent, error) {
	var reply rpctypes.GetTorrentResponse
	return &reply.Torrent, c.client.Call("Session.GetTorrent", rpctypes.GetTorrentRequest{ID: id}, &reply)
}

// GetTorrentFile returns the .torrent file of a torrent.
func (c *Client) GetTorrentFile(id string) ([]byte, error) {
	var reply rpctypes.GetTorrentFileResponse
	err := c.client.Call("Session.GetTorrentFile", rpctypes.GetTorrentFileRequest{ID: id}, &reply)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(reply.Torrent)
}

// GetMagnet returns the magnet link of a torrent.
func (c *Client) GetMagnet(id string) (string, error) {
	var reply rpctypes.GetMagnetResponse
	return reply.Magnet, c.client.Call("Session.GetMagnet", rpctypes.GetMagnetRequest{ID: id}, &reply)
}

// PauseTorrent stops transfer of a torrent.
func (c *Client) PauseTorrent(id string) error {
	var reply rpctypes.PauseTorrentResponse
	return c.client.Call("Session.PauseTorrent", rpctypes.PauseTorrentRequest{ID: id}, &reply)
}

// ResumeTorrent starts a paused torrent.
func (c *Client) ResumeTorrent(id string) error {
	var reply rpctypes.ResumeTorrentResponse
	return c.client.Call("Session.ResumeTorrent", rpctypes.ResumeTorrentRequest{ID: id}, &reply)
}

// UpdateLimits sets speed limits of a torrent in bytes/s. Zero means unlimited.
func (c *Client) UpdateLimits(id string, download, upload int64) error {
	args := rpctypes.UpdateLimitsRequest{ID: id, DownloadLimit: download, UploadLimit: upload}
	var reply rpctypes.UpdateLimitsResponse
	return c.client.Call("Session.UpdateLimits", args, &reply)
}

// RemoveTorrent removes a torrent from the session.
func (c *Client) RemoveTorrent(id string) error {
	var reply rpctypes.RemoveTorrentResponse
	return c.client.Call("Session.RemoveTorrent", rpctypes.RemoveTorrentRequest{ID: id}, &reply)
}

// GetStats returns totals over all torrents.
func (c *Client) GetStats() (*rpctypes.Stats, error) {
	var reply rpctypes.GetStatsResponse
	return &reply.Stats, c.client.Call("Session.GetStats", rpctypes.GetStatsRequest{}, &reply)
}

// GetSessionStats returns stats of the running session.
func (c *Client) GetSessionStats() (*rpctypes.SessionStats, error) {
	var reply rpctypes.GetSessionStatsResponse
	return &reply.Stats, c.client.Call("Session.GetSessionStats", rpctypes.GetSessionStatsRequest{}, &reply)
}

// GetGlobalLimits returns the limits shared by all torrents.
func (c *Client) GetGlobalLimits() (*rpctypes.GlobalLimits, error) {
	var reply rpctypes.GetGlobalLimitsResponse
	return &reply.Limits, c.client.Call("Session.GetGlobalLimits", rpctypes.GetGlobalLimitsRequest{}, &reply)
}

// SetGlobalLimits changes the limits shared by all torrents.
func (c *Client) SetGlobalLimits(download, upload int64) error {
	args := rpctypes.SetGlobalLimitsRequest{Limits: rpctypes.GlobalLimits{DownloadLimit: download, UploadLimit: upload}}
	var reply rpctypes.SetGlobalLimitsResponse
	return c.client.Call("Session.SetGlobalLimits", args, &reply)
}

// ErrorCode returns the application error code of err returned from a call, or 0.
func ErrorCode(err error) int {
	if err == nil {
		return 0
	}
	return jsonrpc2.ServerError(err).Code
}
