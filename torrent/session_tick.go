package torrent

import (
	"errors"
	"fmt"
	"time"

	"github.com/seedbox/torrentd/internal/ratelimiter"
	"github.com/seedbox/torrentd/internal/rpctypes"
	"github.com/seedbox/torrentd/internal/store"
)

// tick moves data for every active torrent and publishes the new state to subscribers.
func (s *Session) tick(dt time.Duration) {
	if dt <= 0 {
		return
	}
	s.metrics.Ticks.Inc(1)

	records := s.promoteQueued(s.store.List())

	var downDemands, upDemands []ratelimiter.Demand
	for i := range records {
		r := &records[i]
		switch {
		case r.Status == store.Downloading:
			o := s.swarm.Offer(r.ID, dt, false)
			down := o.Download
			if left := r.BytesLeft(); down > left {
				down = left
			}
			downDemands = append(downDemands, ratelimiter.Demand{ID: r.ID, Bytes: down})
			upDemands = append(upDemands, ratelimiter.Demand{ID: r.ID, Bytes: o.Upload})
		case r.Seeding():
			o := s.swarm.Offer(r.ID, dt, true)
			upDemands = append(upDemands, ratelimiter.Demand{ID: r.ID, Bytes: o.Upload})
		default:
			s.swarm.Disconnect(r.ID)
		}
	}
	downGrants := s.limiter.Allocate(ratelimiter.Download, dt, downDemands)
	upGrants := s.limiter.Allocate(ratelimiter.Upload, dt, upDemands)

	var downloaded, uploaded int64
	for i := range records {
		r := &records[i]
		active := r.Status == store.Downloading || r.Seeding()
		if !active && r.DownloadRate == 0 && r.UploadRate == 0 {
			continue
		}
		d, u := s.applyGrants(r, dt, downGrants[r.ID], upGrants[r.ID])
		downloaded += d
		uploaded += u
	}
	s.metrics.SpeedDownload.Update(downloaded)
	s.metrics.SpeedUpload.Update(uploaded)

	s.publish()
}

// promoteQueued starts Queued torrents in insertion order while there is room for active downloads.
// It returns records with the promoted ones replaced by their new state.
func (s *Session) promoteQueued(records []store.Record) []store.Record {
	var active int
	for i := range records {
		if records[i].Status == store.Downloading {
			active++
		}
	}
	maxActive := s.config.MaxActiveDownloads
	for i := range records {
		if maxActive > 0 && active >= maxActive {
			break
		}
		r := &records[i]
		if r.Status != store.Queued {
			continue
		}
		updated, err := s.store.CompareAndUpdate(r.ID, r.Version, func(r *store.Record) error {
			r.Status = store.Downloading
			return nil
		})
		if err != nil {
			continue
		}
		s.log.Debugf("torrent %s started downloading", r.ID)
		records[i] = updated
		active++
	}
	return records
}

// applyGrants applies the transfer of one torrent and returns the bytes added to it.
// A torrent changed since r is read transfers nothing in this tick.
func (s *Session) applyGrants(r *store.Record, dt time.Duration, down, up int64) (downloaded, uploaded int64) {
	updated, err := s.applyTransfer(r, dt, down, up)
	switch {
	case err == nil:
		if r.Status != store.Completed && updated.Status == store.Completed {
			s.metrics.TorrentsCompleted.Inc(1)
			s.log.Infof("torrent %s %q completed", updated.ID, updated.Name)
			s.runOnCompleteCmd(updated)
		}
		return updated.BytesDownloaded - r.BytesDownloaded, updated.BytesUploaded - r.BytesUploaded
	case errors.Is(err, store.ErrConflict):
		s.metrics.TickConflicts.Inc(1)
		s.log.Debugf("torrent %s changed during tick, skipping", r.ID)
		s.clearRates(r.ID)
	case errors.Is(err, store.ErrNotFound):
	default:
		s.markError(r.ID, err)
	}
	return 0, 0
}

// clearRates sets the rates of a torrent to zero without touching its other fields.
func (s *Session) clearRates(id string) {
	_, _ = s.store.Update(id, func(r *store.Record) error {
		if r.DownloadRate == 0 && r.UploadRate == 0 {
			return errNoChange
		}
		r.DownloadRate = 0
		r.UploadRate = 0
		return nil
	})
}

// applyTransfer adds granted bytes to the record if it has not changed since it is read.
// A panic while updating is returned as an error.
func (s *Session) applyTransfer(r *store.Record, dt time.Duration, down, up int64) (updated store.Record, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic in tick: %v", v)
		}
	}()
	now := time.Now().UTC()
	return s.store.CompareAndUpdate(r.ID, r.Version, func(r *store.Record) error {
		if r.Status != store.Downloading {
			down = 0
		}
		if !(r.Status == store.Downloading || r.Seeding()) {
			up = 0
		}
		down = capGrant(down, r.DownloadLimit, dt)
		up = capGrant(up, r.UploadLimit, dt)
		if left := r.BytesLeft(); down > left {
			down = left
		}
		r.BytesDownloaded += down
		r.BytesUploaded += up
		r.DownloadRate = rate(down, dt)
		r.UploadRate = rate(up, dt)
		r.UpdateProgress()
		if r.Status == store.Downloading && r.BytesLeft() == 0 {
			r.Status = store.Completed
			r.CompletedAt = now
			r.DownloadRate = 0
		}
		return checkInvariants(r)
	})
}

func capGrant(n, limit int64, dt time.Duration) int64 {
	if n < 0 {
		return 0
	}
	if limit > 0 {
		if c := int64(float64(limit) * dt.Seconds()); n > c {
			return c
		}
	}
	return n
}

func rate(n int64, dt time.Duration) int64 {
	return int64(float64(n) / dt.Seconds())
}

func checkInvariants(r *store.Record) error {
	switch {
	case r.BytesDownloaded < 0 || r.BytesDownloaded > r.Size:
		return fmt.Errorf("downloaded bytes out of range: %d of %d", r.BytesDownloaded, r.Size)
	case r.Progress < 0 || r.Progress > 1:
		return fmt.Errorf("progress out of range: %f", r.Progress)
	case r.BytesUploaded < 0:
		return fmt.Errorf("negative uploaded bytes: %d", r.BytesUploaded)
	}
	return nil
}

// markError moves the torrent to Error status and stops its transfer.
func (s *Session) markError(id string, cause error) {
	_, err := s.store.Update(id, func(r *store.Record) error {
		if r.Status == store.Error {
			return errNoChange
		}
		r.Status = store.Error
		r.Error = cause.Error()
		r.DownloadRate = 0
		r.UploadRate = 0
		return nil
	})
	if err != nil {
		return
	}
	s.metrics.TorrentErrors.Inc(1)
	s.log.Errorf("torrent %s failed: %s", id, cause)
}

func (s *Session) publish() {
	if s.events.Len() == 0 {
		return
	}
	s.events.Publish(s.snapshot())
}

// snapshot returns the current state of all torrents as a subscriber message.
func (s *Session) snapshot() rpctypes.Message {
	records := s.store.List()
	msg := rpctypes.Message{
		Type:  rpctypes.MessageTypeTorrentUpdate,
		Stats: make(map[string]rpctypes.TorrentUpdate, len(records)),
	}
	for _, r := range records {
		msg.Stats[r.ID] = rpctypes.TorrentUpdate{
			Status:       r.Status.String(),
			Progress:     r.Progress,
			DownloadRate: r.DownloadRate,
			UploadRate:   r.UploadRate,
			Downloaded:   r.BytesDownloaded,
			Uploaded:     r.BytesUploaded,
		}
	}
	return msg
}
