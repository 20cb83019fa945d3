// Package torrent provides a torrent session manager that tracks torrents,
// shares bandwidth between them and pushes their progress to subscribers.
package torrent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/seedbox/torrentd/internal/broadcaster"
	"github.com/seedbox/torrentd/internal/logger"
	"github.com/seedbox/torrentd/internal/ratelimiter"
	"github.com/seedbox/torrentd/internal/rpctypes"
	"github.com/seedbox/torrentd/internal/store"
	"github.com/seedbox/torrentd/internal/swarm"
	"github.com/seedbox/torrentd/internal/watcher"
	"github.com/seedbox/torrentd/internal/worker"
)

// Version of the session.
var Version = "0.0.0"

const globalLimitsKey = "global-limits"

// Subscription receives a message on every tick until it is closed.
type Subscription = broadcaster.Subscription[rpctypes.Message]

// Session contains torrents, the rate limiter and subscribers of progress updates.
type Session struct {
	config    Config
	db        *store.DB
	store     *store.Store
	limiter   *ratelimiter.Limiter
	swarm     *swarm.Swarm
	events    *broadcaster.Broadcaster[rpctypes.Message]
	watcher   *watcher.Watcher
	metrics   *sessionMetrics
	log       logger.Logger
	createdAt time.Time

	workers worker.Workers

	// completion hooks are killed when hooksCtx is cancelled
	hooks       sync.WaitGroup
	hooksCtx    context.Context
	cancelHooks context.CancelFunc

	// WebSocket connections are not accepted after closing is set.
	mConns  sync.Mutex
	closing bool
	wsConns sync.WaitGroup

	// serializes changes to global limits
	mLimits sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// New returns a new Session that starts working immediately.
// Torrents saved in the database are loaded with their last status.
func New(cfg Config) (*Session, error) {
	err := cfg.validate()
	if err != nil {
		return nil, err
	}
	if cfg.Database != "" {
		cfg.Database, err = homedir.Expand(cfg.Database)
		if err != nil {
			return nil, err
		}
	}
	if cfg.WatchDir != "" {
		cfg.WatchDir, err = homedir.Expand(cfg.WatchDir)
		if err != nil {
			return nil, err
		}
	}
	l := logger.New("session")
	if cfg.MaxOpenFiles > 0 {
		n, err := raiseNoFile(cfg.MaxOpenFiles)
		if err != nil {
			l.Warningf("cannot change max open files limit: %s", err)
		} else if n < cfg.MaxOpenFiles {
			l.Warningf("max open files limit is %d, hard limit prevents raising it to %d", n, cfg.MaxOpenFiles)
		}
	}
	var db *store.DB
	if cfg.Database != "" {
		db, err = store.Open(cfg.Database)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err != nil {
				db.Close()
			}
		}()
	}
	st, skipped, err := store.New(db)
	if err != nil {
		return nil, err
	}
	for _, e := range skipped {
		l.Errorln(e.Error())
	}
	seed := cfg.SwarmSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	swarmConfig := swarm.Config{
		DownloadSpeed: cfg.SwarmDownloadSpeed,
		UploadSpeed:   cfg.SwarmUploadSpeed,
		Jitter:        cfg.SwarmJitter,
		ConnectDelay:  cfg.SwarmConnectDelay,
		RampUp:        cfg.SwarmRampUp,
	}
	s := &Session{
		config:    cfg,
		db:        db,
		store:     st,
		swarm:     swarm.New(swarmConfig, seed),
		events:    broadcaster.New[rpctypes.Message](),
		log:       l,
		createdAt: time.Now(),
	}
	s.hooksCtx, s.cancelHooks = context.WithCancel(context.Background())
	down, up, err := s.loadGlobalLimits()
	if err != nil {
		return nil, err
	}
	s.limiter = ratelimiter.New(down, up)
	records := st.List()
	for _, r := range records {
		s.limiter.Register(r.ID, r.DownloadLimit, r.UploadLimit)
	}
	if len(records) > 0 {
		l.Infof("loaded %d torrents", len(records))
	}
	s.initMetrics()
	if cfg.WatchDir != "" {
		s.watcher, err = watcher.New(cfg.WatchDir, s.addWatchedFile)
		if err != nil {
			return nil, err
		}
	}
	s.workers.Start(worker.Ticker(cfg.TickInterval, s.tick))
	s.workers.Start(worker.Ticker(metricsTickInterval, func(time.Duration) { s.metrics.Tick() }))
	if db != nil {
		s.workers.Start(worker.Ticker(cfg.ResumeWriteInterval, func(time.Duration) { s.flush() }))
	}
	if s.watcher != nil {
		s.workers.Start(s.watcher)
	}
	return s, nil
}

func (s *Session) loadGlobalLimits() (down, up int64, err error) {
	down, up = s.config.DownloadLimit, s.config.UploadLimit
	if s.db == nil {
		return
	}
	b, err := s.db.GetSetting(globalLimitsKey)
	if err != nil || b == nil {
		return
	}
	var gl rpctypes.GlobalLimits
	if err = json.Unmarshal(b, &gl); err != nil {
		s.log.Errorln("cannot load global limits:", err.Error())
		return down, up, nil
	}
	return gl.DownloadLimit, gl.UploadLimit, nil
}

func (s *Session) flush() {
	err := s.store.Flush()
	if err != nil {
		s.log.Errorln("cannot write torrent records:", err.Error())
	}
}

// Subscribe returns a Subscription that receives the state of all torrents on every tick.
// A subscriber that falls behind by more than Config.SubscriberQueueLength messages is dropped.
func (s *Session) Subscribe() (*Subscription, error) {
	return s.events.Subscribe(s.config.SubscriberQueueLength)
}

func (s *Session) trackConn() bool {
	s.mConns.Lock()
	defer s.mConns.Unlock()
	if s.closing {
		return false
	}
	s.wsConns.Add(1)
	return true
}

// waitHooks waits for running completion hooks and kills the ones still running after timeout.
func (s *Session) waitHooks(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.hooks.Wait()
		close(done)
	}()
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
		s.log.Warningln("killing completion hooks that are still running")
	}
	s.cancelHooks()
	<-done
}

// Close stops the session, closes subscriptions and saves torrent records.
// Session must not be used after Close.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mConns.Lock()
		s.closing = true
		s.mConns.Unlock()
		s.events.Close()
		s.wsConns.Wait()
		s.workers.Stop()
		s.waitHooks(s.config.ShutdownTimeout)
		var errs []error
		if err := s.store.Flush(); err != nil {
			errs = append(errs, err)
		}
		s.metrics.Close()
		if s.db != nil {
			if err := s.db.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.closeErr = errors.Join(errs...)
		s.log.Infoln("session closed")
	})
	return s.closeErr
}
