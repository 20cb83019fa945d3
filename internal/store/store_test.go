package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(id string) Record {
	return Record{ID: id, Name: "name-" + id, Size: 100, Trackers: []string{"http://tracker"}}
}

func TestInsertOrder(t *testing.T) {
	s, _, err := New(nil)
	require.NoError(t, err)
	for _, id := range []string{"c", "a", "b"} {
		_, err = s.Insert(newRecord(id), nil)
		require.NoError(t, err)
	}
	var ids []string
	for _, r := range s.List() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
	assert.Equal(t, 3, s.Len())

	_, err = s.Insert(newRecord("a"), nil)
	assert.Equal(t, ErrExists, err)
}

func TestGetReturnsCopy(t *testing.T) {
	s, _, _ := New(nil)
	_, err := s.Insert(newRecord("a"), nil)
	require.NoError(t, err)

	r, err := s.Get("a")
	require.NoError(t, err)
	r.Trackers[0] = "changed"
	r.Name = "changed"

	r2, _ := s.Get("a")
	assert.Equal(t, "name-a", r2.Name)
	assert.Equal(t, "http://tracker", r2.Trackers[0])
}

func TestUpdate(t *testing.T) {
	s, _, _ := New(nil)
	r, _ := s.Insert(newRecord("a"), nil)
	assert.Equal(t, uint64(1), r.Version)

	r, err := s.Update("a", func(r *Record) error {
		r.Status = Paused
		r.ID = "other"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "a", r.ID)
	assert.Equal(t, Paused, r.Status)
	assert.Equal(t, uint64(2), r.Version)

	errFail := errors.New("fail")
	_, err = s.Update("a", func(r *Record) error {
		r.Status = Error
		return errFail
	})
	assert.Equal(t, errFail, err)
	r, _ = s.Get("a")
	assert.Equal(t, Paused, r.Status)
	assert.Equal(t, uint64(2), r.Version)

	_, err = s.Update("missing", func(r *Record) error { return nil })
	assert.Equal(t, ErrNotFound, err)
}

func TestCompareAndUpdateConflict(t *testing.T) {
	s, _, _ := New(nil)
	r, _ := s.Insert(newRecord("a"), nil)

	_, err := s.Update("a", func(r *Record) error {
		r.Status = Paused
		return nil
	})
	require.NoError(t, err)

	_, err = s.CompareAndUpdate("a", r.Version, func(r *Record) error {
		r.BytesDownloaded = 50
		return nil
	})
	assert.Equal(t, ErrConflict, err)

	cur, _ := s.Get("a")
	assert.Equal(t, int64(0), cur.BytesDownloaded)
	_, err = s.CompareAndUpdate("a", cur.Version, func(r *Record) error {
		r.BytesDownloaded = 50
		return nil
	})
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	s, _, _ := New(nil)
	_, _ = s.Insert(newRecord("a"), []byte("torrent"))
	_, _ = s.Insert(newRecord("b"), nil)

	r, err := s.Delete("a")
	require.NoError(t, err)
	assert.Equal(t, "a", r.ID)

	_, err = s.Get("a")
	assert.Equal(t, ErrNotFound, err)
	_, err = s.Torrent("a")
	assert.Equal(t, ErrNotFound, err)
	_, err = s.Delete("a")
	assert.Equal(t, ErrNotFound, err)
	assert.Len(t, s.List(), 1)
}

func TestConcurrentUpdates(t *testing.T) {
	s, _, _ := New(nil)
	_, _ = s.Insert(newRecord("a"), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = s.Update("a", func(r *Record) error {
					r.BytesUploaded++
					return nil
				})
			}
		}()
	}
	wg.Wait()
	r, _ := s.Get("a")
	assert.Equal(t, int64(1000), r.BytesUploaded)
	assert.Equal(t, uint64(1001), r.Version)
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	db, err := Open(path)
	require.NoError(t, err)

	s, _, err := New(db)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = s.Insert(newRecord(fmt.Sprint(i)), []byte(fmt.Sprintf("torrent-%d", i)))
		require.NoError(t, err)
	}
	_, err = s.Update("1", func(r *Record) error {
		r.Status = Downloading
		r.BytesDownloaded = 40
		r.UpdateProgress()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Dirty())
	_, err = s.Delete("0")
	require.NoError(t, err)
	require.NoError(t, s.Flush())
	assert.Equal(t, 0, s.Dirty())
	require.NoError(t, db.PutSetting("limits", []byte("x")))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	s, skipped, err := New(db)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	records := s.List()
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "2", records[1].ID)
	assert.Equal(t, Downloading, records[0].Status)
	assert.Equal(t, 0.4, records[0].Progress)

	torrent, err := s.Torrent("2")
	require.NoError(t, err)
	assert.Equal(t, "torrent-2", string(torrent))

	setting, err := db.GetSetting("limits")
	require.NoError(t, err)
	assert.Equal(t, "x", string(setting))

	r, err := s.Insert(newRecord("3"), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), r.Seq)
}

func TestUpdateProgress(t *testing.T) {
	r := Record{Size: 200}
	r.BytesDownloaded = 50
	r.UpdateProgress()
	assert.Equal(t, 0.25, r.Progress)

	r.BytesDownloaded = 10
	r.UpdateProgress()
	assert.Equal(t, 0.25, r.Progress)

	r.BytesDownloaded = 400
	r.UpdateProgress()
	assert.Equal(t, 1.0, r.Progress)

	empty := Record{}
	empty.UpdateProgress()
	assert.Equal(t, 1.0, empty.Progress)
}

func TestStatusText(t *testing.T) {
	for _, st := range Statuses {
		b, err := st.MarshalText()
		require.NoError(t, err)
		var st2 Status
		require.NoError(t, st2.UnmarshalText(b))
		assert.Equal(t, st, st2)
	}
	var st Status
	var serr *InvalidStatusError
	assert.True(t, errors.As(st.UnmarshalText([]byte("seeding")), &serr))
	assert.True(t, Completed.Terminal())
	assert.False(t, Paused.Terminal())
}
