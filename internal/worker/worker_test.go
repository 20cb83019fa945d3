package worker_test

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seedbox/torrentd/internal/worker"
	"github.com/stretchr/testify/assert"
)

type Parent struct {
	workers worker.Workers
}

func (p *Parent) Run(stopC chan struct{}) {
	c := &Child{}
	p.workers.Start(c)
	<-stopC
}

func (p *Parent) Stop() {
	p.workers.Stop()
}

type Child struct{}

func (c *Child) Run(stopC chan struct{}) {
	close(childRun)
	fmt.Println("hello from child")
	<-stopC
	fmt.Println("child is stopped")
}

var childRun = make(chan struct{})

func Example() {
	p := &Parent{}
	go p.Run(nil)
	<-childRun
	p.Stop()
	// Output:
	// hello from child
	// child is stopped
}

func TestTicker(t *testing.T) {
	var calls int32
	var w worker.Workers
	w.Start(worker.Ticker(time.Millisecond, func(dt time.Duration) {
		if dt > 0 {
			atomic.AddInt32(&calls, 1)
		}
	}))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, time.Second, time.Millisecond)
	w.Stop()

	n := atomic.LoadInt32(&calls)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, atomic.LoadInt32(&calls))
}

func TestOnFinish(t *testing.T) {
	var w worker.Workers
	done := make(chan struct{})
	w.StartWithOnFinishHandler(worker.Func(func(stopC chan struct{}) { <-stopC }), func() { close(done) })
	w.Stop()
	select {
	case <-done:
	default:
		t.Fatal("finish handler is not called")
	}
}
