package torrent

import "github.com/seedbox/torrentd/internal/store"

// Status of a torrent.
type Status = store.Status

// Torrent statuses. Completed and Error are terminal.
const (
	Queued      = store.Queued
	Downloading = store.Downloading
	Paused      = store.Paused
	Completed   = store.Completed
	Error       = store.Error
)
