package torrent

import (
	"time"

	"github.com/seedbox/torrentd/internal/stats"
)

// SessionStats describe the running session.
type SessionStats struct {
	Torrents           int
	Subscribers        int
	DroppedSubscribers int64
	Uptime             time.Duration

	Ticks         int64
	TickConflicts int64
	TorrentErrors int64

	// Global limits in bytes/s. Zero means unlimited.
	DownloadLimit int64
	UploadLimit   int64

	// Moving average of transfer speed in bytes/s.
	SpeedDownload int
	SpeedUpload   int
}

// Stats returns the current state of the session.
func (s *Session) Stats() SessionStats {
	down, up := s.limiter.Global()
	return SessionStats{
		Torrents:           s.store.Len(),
		Subscribers:        s.events.Len(),
		DroppedSubscribers: s.events.Dropped(),
		Uptime:             time.Since(s.createdAt),
		Ticks:              s.metrics.Ticks.Count(),
		TickConflicts:      s.metrics.TickConflicts.Count(),
		TorrentErrors:      s.metrics.TorrentErrors.Count(),
		DownloadLimit:      down,
		UploadLimit:        up,
		SpeedDownload:      int(s.metrics.SpeedDownload.Rate()),
		SpeedUpload:        int(s.metrics.SpeedUpload.Rate()),
	}
}

// Totals returns aggregate statistics of all torrents in the session.
func (s *Session) Totals() stats.Stats {
	return stats.Compute(s.store.List())
}
