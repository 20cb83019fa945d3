package torrent

import (
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/seedbox/torrentd/internal/store"
)

// EWMAs are ticked at this interval.
const metricsTickInterval = 5 * time.Second

type sessionMetrics struct {
	session  *Session
	registry metrics.Registry

	Torrents           metrics.Gauge
	Subscribers        metrics.Gauge
	DroppedSubscribers metrics.Gauge
	Uptime             metrics.Gauge
	Dirty              metrics.Gauge

	Ticks             metrics.Counter
	TickConflicts     metrics.Counter
	TorrentErrors     metrics.Counter
	TorrentsAdded     metrics.Counter
	TorrentsRemoved   metrics.Counter
	TorrentsCompleted metrics.Counter

	// Bytes transferred, rates are per second.
	SpeedDownload metrics.EWMA
	SpeedUpload   metrics.EWMA
}

func (s *Session) initMetrics() {
	r := metrics.NewRegistry()
	s.metrics = &sessionMetrics{
		session:  s,
		registry: r,

		Uptime:             metrics.NewRegisteredFunctionalGauge("uptime", r, func() int64 { return int64(time.Since(s.createdAt) / time.Second) }),
		Torrents:           metrics.NewRegisteredFunctionalGauge("torrents", r, func() int64 { return int64(s.store.Len()) }),
		Subscribers:        metrics.NewRegisteredFunctionalGauge("subscribers", r, func() int64 { return int64(s.events.Len()) }),
		DroppedSubscribers: metrics.NewRegisteredFunctionalGauge("dropped_subscribers", r, func() int64 { return s.events.Dropped() }),
		Dirty:              metrics.NewRegisteredFunctionalGauge("dirty_records", r, func() int64 { return int64(s.store.Dirty()) }),

		Ticks:             metrics.NewRegisteredCounter("ticks", r),
		TickConflicts:     metrics.NewRegisteredCounter("tick_conflicts", r),
		TorrentErrors:     metrics.NewRegisteredCounter("torrent_errors", r),
		TorrentsAdded:     metrics.NewRegisteredCounter("torrents_added", r),
		TorrentsRemoved:   metrics.NewRegisteredCounter("torrents_removed", r),
		TorrentsCompleted: metrics.NewRegisteredCounter("torrents_completed", r),

		SpeedDownload: metrics.NewEWMA1(),
		SpeedUpload:   metrics.NewEWMA1(),
	}
	m := s.metrics
	metrics.NewRegisteredFunctionalGauge("speed_download", r, func() int64 { return int64(m.SpeedDownload.Rate()) })
	metrics.NewRegisteredFunctionalGauge("speed_upload", r, func() int64 { return int64(m.SpeedUpload.Rate()) })
	for _, st := range store.Statuses {
		st := st
		metrics.NewRegisteredFunctionalGauge("torrents_"+st.String(), r, func() int64 {
			var n int64
			for _, rec := range s.store.List() {
				if rec.Status == st {
					n++
				}
			}
			return n
		})
	}
}

// Tick updates the moving averages. It must be called every metricsTickInterval.
func (m *sessionMetrics) Tick() {
	m.SpeedDownload.Tick()
	m.SpeedUpload.Tick()
}

func (m *sessionMetrics) Close() {
	m.registry.UnregisterAll()
}
