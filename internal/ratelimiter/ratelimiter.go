// Package ratelimiter divides download and upload bandwidth between torrents.
// Each torrent and the session as a whole have a token bucket per direction.
package ratelimiter

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/juju/ratelimit"
)

// Direction of the transfer.
type Direction int

// Directions.
const (
	Download Direction = iota
	Upload
)

func (d Direction) String() string {
	if d == Upload {
		return "upload"
	}
	return "download"
}

// limit is a rate in bytes/s with its bucket. A zero rate has no bucket and means unlimited.
type limit struct {
	rate   int64
	bucket *ratelimit.Bucket
}

func newLimit(rate int64) limit {
	if rate <= 0 {
		return limit{}
	}
	return limit{rate: rate, bucket: ratelimit.NewBucketWithRate(float64(rate), rate)}
}

// available returns how many bytes may pass in dt, or -1 if there is no limit.
func (l limit) available(dt time.Duration) int64 {
	if l.bucket == nil {
		return -1
	}
	perTick := int64(float64(l.rate) * dt.Seconds())
	if avail := l.bucket.Available(); avail < perTick {
		perTick = avail
	}
	if perTick < 0 {
		perTick = 0
	}
	return perTick
}

func (l limit) take(n int64) {
	if l.bucket != nil && n > 0 {
		l.bucket.TakeAvailable(n)
	}
}

// Limiter holds the global and per torrent limits.
type Limiter struct {
	m        sync.Mutex
	global   [2]limit
	torrents map[string]*[2]limit
}

// New returns a Limiter with global limits in bytes/s. Zero means unlimited.
func New(download, upload int64) *Limiter {
	return &Limiter{
		global:   [2]limit{newLimit(download), newLimit(upload)},
		torrents: make(map[string]*[2]limit),
	}
}

// SetGlobal replaces the global limits.
func (l *Limiter) SetGlobal(download, upload int64) {
	l.m.Lock()
	l.global = [2]limit{newLimit(download), newLimit(upload)}
	l.m.Unlock()
}

// Global returns the global limits.
func (l *Limiter) Global() (download, upload int64) {
	l.m.Lock()
	defer l.m.Unlock()
	return l.global[Download].rate, l.global[Upload].rate
}

// Register adds a torrent or replaces its limits.
func (l *Limiter) Register(id string, download, upload int64) {
	l.m.Lock()
	l.torrents[id] = &[2]limit{newLimit(download), newLimit(upload)}
	l.m.Unlock()
}

// SetLimits changes the limits of a registered torrent.
// Limits that did not change keep their bucket state.
func (l *Limiter) SetLimits(id string, download, upload int64) bool {
	l.m.Lock()
	defer l.m.Unlock()
	t, ok := l.torrents[id]
	if !ok {
		return false
	}
	if t[Download].rate != download {
		t[Download] = newLimit(download)
	}
	if t[Upload].rate != upload {
		t[Upload] = newLimit(upload)
	}
	return true
}

// Limits returns the limits of a registered torrent.
func (l *Limiter) Limits(id string) (download, upload int64, ok bool) {
	l.m.Lock()
	defer l.m.Unlock()
	t, ok := l.torrents[id]
	if !ok {
		return 0, 0, false
	}
	return t[Download].rate, t[Upload].rate, true
}

// Unregister releases the torrent's allocation.
func (l *Limiter) Unregister(id string) {
	l.m.Lock()
	delete(l.torrents, id)
	l.m.Unlock()
}

// Len returns the number of registered torrents.
func (l *Limiter) Len() int {
	l.m.Lock()
	defer l.m.Unlock()
	return len(l.torrents)
}

// Demand is the number of bytes a torrent could transfer in the current tick.
type Demand struct {
	ID    string
	Bytes int64
}

type claim struct {
	id     string
	weight float64
	want   int64
	grant  int64
}

// Allocate grants bytes to the demanding torrents for a tick of length dt.
//
// The global budget is split between torrents that have a limit in proportion to their limits.
// No torrent gets more than its demand, its bucket or its limit for dt.
// Torrents without a limit share the rest equally.
// The sum of grants never exceeds the global limit for dt.
// Granted bytes are taken from the buckets. Unregistered torrents get nothing.
func (l *Limiter) Allocate(dir Direction, dt time.Duration, demands []Demand) map[string]int64 {
	l.m.Lock()
	defer l.m.Unlock()

	budget := l.global[dir].available(dt)
	if budget < 0 {
		budget = math.MaxInt64
	}

	var limited, unlimited []*claim
	for _, d := range demands {
		t, ok := l.torrents[d.ID]
		if !ok || d.Bytes <= 0 {
			continue
		}
		c := &claim{id: d.ID, want: d.Bytes, weight: 1}
		if avail := t[dir].available(dt); avail >= 0 {
			if avail < c.want {
				c.want = avail
			}
			c.weight = float64(t[dir].rate)
			limited = append(limited, c)
		} else {
			unlimited = append(unlimited, c)
		}
	}

	budget = fill(limited, budget)
	fill(unlimited, budget)

	grants := make(map[string]int64, len(limited)+len(unlimited))
	var total int64
	for _, claims := range [][]*claim{limited, unlimited} {
		for _, c := range claims {
			if c.grant <= 0 {
				continue
			}
			l.torrents[c.id][dir].take(c.grant)
			grants[c.id] = c.grant
			total += c.grant
		}
	}
	l.global[dir].take(total)
	return grants
}

// fill distributes budget between claims by weight with water-filling:
// claims that want less than their share are satisfied
// and the leftover is divided again between the others.
// It returns the unused budget.
func fill(claims []*claim, budget int64) int64 {
	active := make([]*claim, 0, len(claims))
	for _, c := range claims {
		if c.want > 0 {
			active = append(active, c)
		}
	}
	// stable rounding between ticks
	sort.Slice(active, func(i, j int) bool { return active[i].id < active[j].id })
	for len(active) > 0 && budget > 0 {
		var sum float64
		for _, c := range active {
			sum += c.weight
		}
		var rest []*claim
		var used int64
		for _, c := range active {
			if float64(c.want) <= float64(budget)*c.weight/sum {
				c.grant = c.want
				used += c.want
			} else {
				rest = append(rest, c)
			}
		}
		if len(rest) < len(active) {
			budget -= used
			active = rest
			continue
		}
		total := float64(budget)
		for _, c := range active {
			share := int64(total * c.weight / sum)
			if share > budget {
				share = budget
			}
			c.grant = share
			budget -= share
		}
		break
	}
	return budget
}
