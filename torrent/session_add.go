package torrent

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gofrs/uuid"
	"github.com/seedbox/torrentd/internal/bencode"
	"github.com/seedbox/torrentd/internal/magnet"
	"github.com/seedbox/torrentd/internal/metainfo"
	"github.com/seedbox/torrentd/internal/store"
)

// AddTorrentOptions contains options for adding a new torrent.
type AddTorrentOptions struct {
	// Do not start the torrent after adding. It is added in Paused status.
	Stopped bool
	// Stop the torrent when download completes instead of seeding.
	StopAfterDownload bool
	// Speed limits in bytes/s. Zero means unlimited.
	DownloadLimit int64
	UploadLimit   int64
}

var errTorrentTooLarge = errors.New("torrent file too large")

// AddTorrent adds a new torrent to the session by reading .torrent metainfo from reader.
// The torrent is Queued unless opt.Stopped is set.
// Malformed metainfo results in *InputError.
func (s *Session) AddTorrent(r io.Reader, opt *AddTorrentOptions) (Torrent, error) {
	if opt == nil {
		opt = &AddTorrentOptions{}
	}
	if err := s.checkLimits(opt.DownloadLimit, opt.UploadLimit); err != nil {
		return Torrent{}, err
	}
	b, err := io.ReadAll(io.LimitReader(r, s.config.MaxTorrentSize+1))
	if err != nil {
		return Torrent{}, err
	}
	if int64(len(b)) > s.config.MaxTorrentSize {
		return Torrent{}, newInputError(errTorrentTooLarge)
	}
	mi, err := metainfo.NewBytes(b, bencode.Limits{MaxSize: int(s.config.MaxTorrentSize), MaxDepth: s.config.BencodeMaxDepth})
	if err != nil {
		return Torrent{}, newInputError(err)
	}
	id, err := newID()
	if err != nil {
		return Torrent{}, err
	}
	rec := store.Record{
		ID:                id,
		Name:              mi.Info.Name,
		InfoHash:          mi.Info.Hash,
		Size:              mi.Info.TotalLength,
		PieceLength:       mi.Info.PieceLength,
		NumPieces:         mi.Info.NumPieces,
		Trackers:          mi.Trackers(),
		Private:           mi.Info.IsPrivate(),
		Status:            store.Queued,
		DownloadLimit:     opt.DownloadLimit,
		UploadLimit:       opt.UploadLimit,
		StopAfterDownload: opt.StopAfterDownload,
		AddedAt:           time.Now().UTC(),
	}
	if opt.Stopped {
		rec.Status = store.Paused
	}
	s.limiter.Register(id, rec.DownloadLimit, rec.UploadLimit)
	rec, err = s.store.Insert(rec, b)
	if err != nil {
		s.limiter.Unregister(id)
		return Torrent{}, err
	}
	s.metrics.TorrentsAdded.Inc(1)
	s.log.Infof("added torrent %s %q (%d bytes)", id, rec.Name, rec.Size)
	return newTorrent(rec), nil
}

// AddURI adds a new torrent by downloading its .torrent file from an http or https URL.
func (s *Session) AddURI(uri string, opt *AddTorrentOptions) (Torrent, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Torrent{}, newInputError(err)
	}
	switch u.Scheme {
	case "http", "https":
		return s.addURL(uri, opt)
	case "magnet":
		return s.addMagnet(uri, opt)
	default:
		return Torrent{}, newInputError(errors.New("unsupported uri scheme: " + u.Scheme))
	}
}

func (s *Session) addURL(u string, opt *AddTorrentOptions) (Torrent, error) {
	client := http.Client{
		Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		Timeout:   s.config.TorrentAddHTTPTimeout,
	}
	defer client.CloseIdleConnections()
	resp, err := client.Get(u)
	if err != nil {
		return Torrent{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Torrent{}, fmt.Errorf("cannot download torrent: %s", resp.Status)
	}
	if resp.ContentLength > s.config.MaxTorrentSize {
		return Torrent{}, newInputError(errTorrentTooLarge)
	}
	return s.AddTorrent(resp.Body, opt)
}

// addMagnet re-adds a torrent whose metainfo is already in the session.
// Metadata is never fetched from peers.
func (s *Session) addMagnet(uri string, opt *AddTorrentOptions) (Torrent, error) {
	m, err := magnet.New(uri)
	if err != nil {
		return Torrent{}, newInputError(err)
	}
	for _, r := range s.store.List() {
		if r.InfoHash != m.InfoHash {
			continue
		}
		b, err := s.store.Torrent(r.ID)
		if err != nil {
			continue
		}
		return s.AddTorrent(bytes.NewReader(b), opt)
	}
	return Torrent{}, newInputError(fmt.Errorf("metainfo of %x is not known", m.InfoHash))
}

func (s *Session) addWatchedFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = s.AddTorrent(f, nil)
	return err
}

func newID() (string, error) {
	u1, err := uuid.NewV1()
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(u1[:]), nil
}

func (s *Session) checkLimits(limits ...int64) error {
	for _, l := range limits {
		if l < 0 || l > s.config.MaxSpeedLimit {
			return fmt.Errorf("%w: %d", ErrLimitExceeded, l)
		}
	}
	return nil
}
