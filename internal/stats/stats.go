// Package stats aggregates counters over a snapshot of torrent records.
package stats

import "github.com/seedbox/torrentd/internal/store"

// Stats are totals over a set of records. Rates are in bytes/s.
type Stats struct {
	Total           int
	ByStatus        map[store.Status]int
	Seeding         int
	Size            int64
	BytesDownloaded int64
	BytesUploaded   int64
	DownloadRate    int64
	UploadRate      int64
}

// Active returns the number of downloading torrents.
func (s Stats) Active() int {
	return s.ByStatus[store.Downloading]
}

// Compute returns totals of records. It does not modify its argument.
func Compute(records []store.Record) Stats {
	s := Stats{
		Total:    len(records),
		ByStatus: make(map[store.Status]int, len(store.Statuses)),
	}
	for _, st := range store.Statuses {
		s.ByStatus[st] = 0
	}
	for i := range records {
		r := &records[i]
		s.ByStatus[r.Status]++
		if r.Seeding() {
			s.Seeding++
		}
		s.Size += r.Size
		s.BytesDownloaded += r.BytesDownloaded
		s.BytesUploaded += r.BytesUploaded
		s.DownloadRate += r.DownloadRate
		s.UploadRate += r.UploadRate
	}
	return s
}
