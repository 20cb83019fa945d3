// Package swarm simulates the throughput peers would offer to a torrent.
// Offers are upper bounds. The rate limiter decides how much of them is used.
package swarm

import (
	"math/rand"
	"sync"
	"time"
)

// Config of the simulated swarm. Speeds are in bytes/s.
type Config struct {
	DownloadSpeed int64
	UploadSpeed   int64
	// Each offer is scaled by a random factor in [1-Jitter, 1+Jitter].
	Jitter float64
	// Nothing is offered until a torrent has been connected for ConnectDelay.
	ConnectDelay time.Duration
	// After ConnectDelay the offer grows linearly to full speed over RampUp.
	RampUp time.Duration
}

// Offer is the number of bytes available to transfer in one tick.
type Offer struct {
	Download int64
	Upload   int64
}

// Swarm produces offers. It is safe for concurrent use.
type Swarm struct {
	config Config

	m         sync.Mutex
	rnd       *rand.Rand
	connected map[string]time.Duration
}

// New returns a Swarm with a random source seeded with seed.
func New(cfg Config, seed int64) *Swarm {
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	} else if cfg.Jitter > 1 {
		cfg.Jitter = 1
	}
	if cfg.ConnectDelay < 0 {
		cfg.ConnectDelay = 0
	}
	if cfg.RampUp < 0 {
		cfg.RampUp = 0
	}
	return &Swarm{
		config:    cfg,
		rnd:       rand.New(rand.NewSource(seed)), // nolint: gosec
		connected: make(map[string]time.Duration),
	}
}

// Offer returns the throughput offered to torrent id for a tick of length dt.
// Every call counts dt as connected time of the torrent until Disconnect is called.
// Seeding torrents are not offered any download.
func (s *Swarm) Offer(id string, dt time.Duration, seeding bool) Offer {
	if dt <= 0 {
		return Offer{}
	}
	s.m.Lock()
	defer s.m.Unlock()
	before := s.connected[id]
	after := before + dt
	s.connected[id] = after
	secs := s.warm(after) - s.warm(before)

	var o Offer
	if !seeding {
		o.Download = s.scale(s.config.DownloadSpeed, secs)
	}
	o.Upload = s.scale(s.config.UploadSpeed, secs)
	return o
}

// Disconnect drops the peers of torrent id. The next Offer starts connecting again.
func (s *Swarm) Disconnect(id string) {
	s.m.Lock()
	delete(s.connected, id)
	s.m.Unlock()
}

// Connected returns how long torrent id has been offered throughput.
func (s *Swarm) Connected(id string) time.Duration {
	s.m.Lock()
	defer s.m.Unlock()
	return s.connected[id]
}

// warm returns the number of full speed seconds in the first t of a connection.
func (s *Swarm) warm(t time.Duration) float64 {
	d, r := s.config.ConnectDelay, s.config.RampUp
	if t <= d {
		return 0
	}
	x := (t - d).Seconds()
	if r == 0 {
		return x
	}
	rs := r.Seconds()
	if x < rs {
		return x * x / (2 * rs)
	}
	return x - rs/2
}

func (s *Swarm) scale(speed int64, secs float64) int64 {
	if speed <= 0 || secs <= 0 {
		return 0
	}
	f := 1.0
	if s.config.Jitter > 0 {
		f += s.config.Jitter * (2*s.rnd.Float64() - 1)
	}
	return int64(float64(speed) * secs * f)
}
