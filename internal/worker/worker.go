// Package worker runs background loops that are stopped together.
package worker

import (
	"sync"
	"time"
)

type Worker interface {
	// Run is a blocking method that usually contains a for/select loop.
	Run(stopC chan struct{})
}

// Func adapts a function to the Worker interface.
type Func func(stopC chan struct{})

// Run calls f.
func (f Func) Run(stopC chan struct{}) {
	f(stopC)
}

// Ticker calls fn with the elapsed time since the previous call on every interval.
func Ticker(interval time.Duration, fn func(dt time.Duration)) Worker {
	return Func(func(stopC chan struct{}) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case now := <-ticker.C:
				fn(now.Sub(last))
				last = now
			case <-stopC:
				return
			}
		}
	})
}

// Workers is a group of running workers.
type Workers struct {
	m     sync.Mutex
	stopC chan struct{}
	wg    sync.WaitGroup
}

func (w *Workers) StartWithOnFinishHandler(r Worker, onFinish func()) {
	w.m.Lock()
	if w.stopC == nil {
		w.stopC = make(chan struct{})
	}
	stopC := w.stopC
	w.wg.Add(1)
	w.m.Unlock()
	go func() {
		defer w.wg.Done()
		r.Run(stopC)
		if onFinish != nil {
			onFinish()
		}
	}()
}

func (w *Workers) Start(r Worker) {
	w.StartWithOnFinishHandler(r, nil)
}

// Stop signals all workers to stop and waits for them to return.
func (w *Workers) Stop() {
	w.m.Lock()
	if w.stopC != nil {
		close(w.stopC)
		w.stopC = nil
	}
	w.m.Unlock()
	w.wg.Wait()
}
