package torrent

import (
	"errors"
	"fmt"
	"time"

	"github.com/seedbox/torrentd/internal/magnet"
	"github.com/seedbox/torrentd/internal/store"
)

// errNoChange aborts a store update that would not modify the record.
var errNoChange = errors.New("no change")

// InfoHash is the SHA-1 hash of the torrent's info dictionary.
type InfoHash = store.InfoHash

// Torrent is a snapshot of a torrent in the session.
type Torrent struct {
	record store.Record
}

func newTorrent(r store.Record) Torrent {
	return Torrent{record: r}
}

// ID is a unique identifier in the Session.
func (t Torrent) ID() string {
	return t.record.ID
}

// Name of the torrent.
func (t Torrent) Name() string {
	return t.record.Name
}

// InfoHash returns the hash of the info dictionary of torrent file.
func (t Torrent) InfoHash() InfoHash {
	return t.record.InfoHash
}

// Size is the total length of the files in the torrent.
func (t Torrent) Size() int64 {
	return t.record.Size
}

func (t Torrent) PieceLength() uint32 {
	return t.record.PieceLength
}

func (t Torrent) NumPieces() uint32 {
	return t.record.NumPieces
}

func (t Torrent) Private() bool {
	return t.record.Private
}

// Trackers returns the tracker URLs in the torrent file.
func (t Torrent) Trackers() []string {
	return append([]string(nil), t.record.Trackers...)
}

func (t Torrent) Status() Status {
	return t.record.Status
}

// Error returns the reason of the failure if the torrent is in Error status.
func (t Torrent) Error() string {
	return t.record.Error
}

// Progress is the downloaded fraction of the torrent between 0 and 1.
func (t Torrent) Progress() float64 {
	return t.record.Progress
}

// Limits returns the speed limits of the torrent in bytes/s. Zero means unlimited.
func (t Torrent) Limits() (download, upload int64) {
	return t.record.DownloadLimit, t.record.UploadLimit
}

func (t Torrent) StopAfterDownload() bool {
	return t.record.StopAfterDownload
}

// Stats contains transfer statistics of a torrent.
type Stats struct {
	// Measured in the last tick, in bytes/s.
	DownloadRate int64
	UploadRate   int64

	BytesDownloaded int64
	BytesUploaded   int64
	BytesLeft       int64
}

func (t Torrent) Stats() Stats {
	return Stats{
		DownloadRate:    t.record.DownloadRate,
		UploadRate:      t.record.UploadRate,
		BytesDownloaded: t.record.BytesDownloaded,
		BytesUploaded:   t.record.BytesUploaded,
		BytesLeft:       t.record.BytesLeft(),
	}
}

func (t Torrent) AddedAt() time.Time {
	return t.record.AddedAt
}

// CompletedAt returns the time download has finished or zero time.
func (t Torrent) CompletedAt() time.Time {
	return t.record.CompletedAt
}

// Magnet returns the magnet link of the torrent.
func (t Torrent) Magnet() string {
	m := magnet.Magnet{
		InfoHash: t.record.InfoHash,
		Name:     t.record.Name,
		Trackers: t.record.Trackers,
	}
	return m.String()
}

// ListTorrents returns all torrents in the order they were added.
func (s *Session) ListTorrents() []Torrent {
	records := s.store.List()
	ret := make([]Torrent, len(records))
	for i, r := range records {
		ret[i] = newTorrent(r)
	}
	return ret
}

// GetTorrent returns the current state of the torrent.
func (s *Session) GetTorrent(id string) (Torrent, error) {
	r, err := s.store.Get(id)
	if err != nil {
		return Torrent{}, torrentError(err)
	}
	return newTorrent(r), nil
}

// Magnet returns the magnet link of the torrent.
func (s *Session) Magnet(id string) (string, error) {
	t, err := s.GetTorrent(id)
	if err != nil {
		return "", err
	}
	return t.Magnet(), nil
}

// TorrentFile returns the .torrent file the torrent was added with.
func (s *Session) TorrentFile(id string) ([]byte, error) {
	b, err := s.store.Torrent(id)
	return b, torrentError(err)
}

// PauseTorrent stops transfer of a Queued or Downloading torrent.
// Pausing a Paused torrent does nothing.
func (s *Session) PauseTorrent(id string) error {
	_, err := s.store.Update(id, func(r *store.Record) error {
		if r.Status.Terminal() {
			return fmt.Errorf("%w: cannot pause %s torrent", ErrInvalidState, r.Status)
		}
		if r.Status == store.Paused {
			return errNoChange
		}
		r.Status = store.Paused
		r.DownloadRate = 0
		r.UploadRate = 0
		return nil
	})
	if err == nil {
		s.log.Infof("paused torrent %s", id)
	}
	return torrentError(err)
}

// ResumeTorrent starts downloading a Paused torrent.
// Resuming a Queued or Downloading torrent does nothing.
func (s *Session) ResumeTorrent(id string) error {
	_, err := s.store.Update(id, func(r *store.Record) error {
		if r.Status.Terminal() {
			return fmt.Errorf("%w: cannot resume %s torrent", ErrInvalidState, r.Status)
		}
		if r.Status != store.Paused {
			return errNoChange
		}
		r.Status = store.Downloading
		return nil
	})
	if err == nil {
		s.log.Infof("resumed torrent %s", id)
	}
	return torrentError(err)
}

// UpdateLimits replaces the speed limits of the torrent. Zero means unlimited.
// New limits are applied on the next tick.
func (s *Session) UpdateLimits(id string, download, upload int64) error {
	if err := s.checkLimits(download, upload); err != nil {
		return err
	}
	_, err := s.store.Update(id, func(r *store.Record) error {
		r.DownloadLimit = download
		r.UploadLimit = upload
		// under the store lock so the limiter sees updates in the same order as the record
		s.limiter.SetLimits(id, download, upload)
		return nil
	})
	if err != nil {
		return torrentError(err)
	}
	s.log.Debugf("limits of torrent %s: download=%d upload=%d", id, download, upload)
	return nil
}

// RemoveTorrent deletes the torrent from the session and releases its bandwidth.
// Operations on a removed torrent return ErrTorrentNotFound.
func (s *Session) RemoveTorrent(id string) error {
	r, err := s.store.Delete(id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrTorrentNotFound
	}
	s.limiter.Unregister(id)
	s.swarm.Disconnect(id)
	if err != nil {
		return err
	}
	s.metrics.TorrentsRemoved.Inc(1)
	s.log.Infof("removed torrent %s %q", id, r.Name)
	return nil
}

// torrentError converts errors from store to errors of this package.
func torrentError(err error) error {
	switch {
	case err == nil, errors.Is(err, errNoChange):
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrTorrentNotFound
	default:
		return err
	}
}
