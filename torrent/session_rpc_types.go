package torrent

import (
	"github.com/seedbox/torrentd/internal/rpctypes"
	"github.com/seedbox/torrentd/internal/stats"
	"github.com/seedbox/torrentd/internal/store"
)

func newRPCTorrent(t Torrent) rpctypes.Torrent {
	st := t.Stats()
	down, up := t.Limits()
	ret := rpctypes.Torrent{
		ID:                 t.ID(),
		Name:               t.Name(),
		InfoHash:           t.InfoHash().String(),
		Size:               t.Size(),
		Status:             t.Status().String(),
		Progress:           t.Progress(),
		DownloadSpeedLimit: down,
		UploadSpeedLimit:   up,
		DownloadRate:       st.DownloadRate,
		UploadRate:         st.UploadRate,
		Downloaded:         st.BytesDownloaded,
		Uploaded:           st.BytesUploaded,
		PieceLength:        t.PieceLength(),
		NumPieces:          t.NumPieces(),
		Private:            t.Private(),
		Trackers:           t.Trackers(),
		StopAfterDownload:  t.StopAfterDownload(),
		AddedAt:            rpctypes.Time{Time: t.AddedAt()},
		CompletedAt:        rpctypes.OptionalTime(t.CompletedAt()),
	}
	if ret.Trackers == nil {
		ret.Trackers = []string{}
	}
	if e := t.Error(); e != "" {
		ret.Error = &e
	}
	return ret
}

func newRPCTorrents(torrents []Torrent) []rpctypes.Torrent {
	ret := make([]rpctypes.Torrent, 0, len(torrents))
	for _, t := range torrents {
		ret = append(ret, newRPCTorrent(t))
	}
	return ret
}

func (s *Session) rpcStats() rpctypes.Stats {
	st := stats.Compute(s.store.List())
	down, up := s.limiter.Global()
	return rpctypes.Stats{
		TotalDownloads:      st.Total,
		ActiveDownloads:     st.Active(),
		CompletedDownloads:  st.ByStatus[store.Completed],
		QueuedDownloads:     st.ByStatus[store.Queued],
		PausedDownloads:     st.ByStatus[store.Paused],
		ErroredDownloads:    st.ByStatus[store.Error],
		Seeding:             st.Seeding,
		TotalSize:           st.Size,
		TotalDownloaded:     st.BytesDownloaded,
		TotalUploaded:       st.BytesUploaded,
		GlobalDownloadRate:  st.DownloadRate,
		GlobalUploadRate:    st.UploadRate,
		GlobalDownloadLimit: down,
		GlobalUploadLimit:   up,
	}
}

func newRPCSessionStats(s SessionStats) rpctypes.SessionStats {
	return rpctypes.SessionStats{
		Uptime:              int(s.Uptime.Seconds()),
		Torrents:            s.Torrents,
		Subscribers:         s.Subscribers,
		DroppedSubscribers:  s.DroppedSubscribers,
		Ticks:               s.Ticks,
		TickConflicts:       s.TickConflicts,
		TorrentErrors:       s.TorrentErrors,
		GlobalDownloadLimit: s.DownloadLimit,
		GlobalUploadLimit:   s.UploadLimit,
		SpeedDownload:       s.SpeedDownload,
		SpeedUpload:         s.SpeedUpload,
	}
}

func newAddTorrentOptions(o rpctypes.AddTorrentOptions) *AddTorrentOptions {
	return &AddTorrentOptions{
		Stopped:           o.Stopped,
		StopAfterDownload: o.StopAfterDownload,
		DownloadLimit:     o.DownloadLimit,
		UploadLimit:       o.UploadLimit,
	}
}
