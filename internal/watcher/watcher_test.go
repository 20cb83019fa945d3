package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	m     sync.Mutex
	paths []string
}

func (r *recorder) add(path string) error {
	r.m.Lock()
	defer r.m.Unlock()
	r.paths = append(r.paths, filepath.Base(path))
	if filepath.Base(path) == "bad.torrent" {
		return errors.New("bad torrent")
	}
	return nil
}

func (r *recorder) names() []string {
	r.m.Lock()
	defer r.m.Unlock()
	return append([]string(nil), r.paths...)
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.torrent"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))

	var rec recorder
	w, err := New(dir, rec.add)
	require.NoError(t, err)
	stopC := make(chan struct{})
	done := make(chan struct{})
	go func() {
		w.Run(stopC)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(rec.names()) == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.torrent"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.torrent"), []byte("x"), 0600))
	assert.Eventually(t, func() bool { return len(rec.names()) == 3 }, 5*time.Second, 10*time.Millisecond)

	close(stopC)
	<-done

	assert.ElementsMatch(t, []string{"existing.torrent", "new.torrent", "bad.torrent"}, rec.names())
	assert.FileExists(t, filepath.Join(dir, "existing.torrent.added"))
	assert.FileExists(t, filepath.Join(dir, "new.torrent.added"))
	assert.FileExists(t, filepath.Join(dir, "bad.torrent.invalid"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}
