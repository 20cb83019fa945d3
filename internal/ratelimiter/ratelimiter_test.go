package ratelimiter

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func demands(bytes int64, ids ...string) []Demand {
	ret := make([]Demand, len(ids))
	for i, id := range ids {
		ret[i] = Demand{ID: id, Bytes: bytes}
	}
	return ret
}

func TestAllocateLimitedFirstThenEqualShare(t *testing.T) {
	l := New(1000, 0)
	l.Register("a", 600, 0)
	l.Register("b", 200, 0)
	l.Register("c", 0, 0)
	l.Register("d", 0, 0)

	grants := l.Allocate(Download, time.Second, demands(10000, "a", "b", "c", "d"))
	assert.Equal(t, map[string]int64{"a": 600, "b": 200, "c": 100, "d": 100}, grants)
}

func TestAllocateProportional(t *testing.T) {
	l := New(300, 0)
	l.Register("a", 400, 0)
	l.Register("b", 200, 0)

	grants := l.Allocate(Download, time.Second, demands(10000, "a", "b"))
	assert.Equal(t, map[string]int64{"a": 200, "b": 100}, grants)
}

func TestAllocateRedistributesUnusedShare(t *testing.T) {
	l := New(900, 0)
	l.Register("a", 0, 0)
	l.Register("b", 0, 0)
	l.Register("c", 0, 0)

	grants := l.Allocate(Download, time.Second, []Demand{{"a", 100}, {"b", 5000}, {"c", 5000}})
	assert.Equal(t, map[string]int64{"a": 100, "b": 400, "c": 400}, grants)
}

func TestAllocateWithoutGlobalLimit(t *testing.T) {
	l := New(0, 0)
	l.Register("a", 500, 0)
	l.Register("b", 0, 0)

	grants := l.Allocate(Download, time.Second, demands(1000, "a", "b"))
	assert.Equal(t, map[string]int64{"a": 500, "b": 1000}, grants)
}

func TestAllocateDirectionsAreIndependent(t *testing.T) {
	l := New(0, 100)
	l.Register("a", 0, 0)

	assert.Equal(t, int64(1000), l.Allocate(Download, time.Second, demands(1000, "a"))["a"])
	assert.Equal(t, int64(100), l.Allocate(Upload, time.Second, demands(1000, "a"))["a"])
}

func TestAllocateTakesFromBucket(t *testing.T) {
	l := New(0, 0)
	l.Register("a", 1000, 0)

	grants := l.Allocate(Download, time.Second, demands(5000, "a"))
	assert.Equal(t, int64(1000), grants["a"])

	grants = l.Allocate(Download, time.Second, demands(5000, "a"))
	assert.LessOrEqual(t, grants["a"], int64(10))
}

func TestAllocateUnregistered(t *testing.T) {
	l := New(0, 0)
	l.Register("a", 0, 0)
	l.Unregister("a")

	assert.Empty(t, l.Allocate(Download, time.Second, demands(1000, "a")))
	assert.Equal(t, 0, l.Len())
	_, _, ok := l.Limits("a")
	assert.False(t, ok)
	assert.False(t, l.SetLimits("a", 1, 1))
}

func TestSetLimits(t *testing.T) {
	l := New(0, 0)
	l.Register("a", 100, 200)
	assert.True(t, l.SetLimits("a", 0, 300))

	down, up, ok := l.Limits("a")
	assert.True(t, ok)
	assert.Equal(t, int64(0), down)
	assert.Equal(t, int64(300), up)

	l.SetGlobal(10, 20)
	gd, gu := l.Global()
	assert.Equal(t, int64(10), gd)
	assert.Equal(t, int64(20), gu)
}

func TestAllocateNeverExceedsLimits(t *testing.T) {
	const global = 5242880
	dt := 100 * time.Millisecond
	rnd := rand.New(rand.NewSource(1))
	l := New(global, global/2)
	limits := make(map[string]int64)
	var ids []string
	for i := 0; i < 20; i++ {
		id := fmt.Sprint(i)
		var limit int64
		if i%3 != 0 {
			limit = rnd.Int63n(4 << 20)
		}
		limits[id] = limit
		ids = append(ids, id)
		l.Register(id, limit, limit)
	}
	for tick := 0; tick < 50; tick++ {
		ds := make([]Demand, len(ids))
		for i, id := range ids {
			ds[i] = Demand{ID: id, Bytes: rnd.Int63n(2 << 20)}
		}
		for _, dir := range []Direction{Download, Upload} {
			grants := l.Allocate(dir, dt, ds)
			var sum int64
			for id, g := range grants {
				sum += g
				if limits[id] > 0 {
					assert.LessOrEqual(t, g, int64(float64(limits[id])*dt.Seconds()))
				}
			}
			globalLimit := int64(global)
			if dir == Upload {
				globalLimit = global / 2
			}
			assert.LessOrEqual(t, sum, int64(float64(globalLimit)*dt.Seconds()))
		}
	}
}
