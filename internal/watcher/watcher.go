// Package watcher adds torrent files that appear in a directory.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/seedbox/torrentd/internal/logger"
)

// Files are processed after they have not changed for this long.
const debounceDelay = time.Second

const (
	addedSuffix   = ".added"
	invalidSuffix = ".invalid"
)

// Watcher calls a function for every .torrent file created in a directory.
// Processed files are renamed with ".added" or ".invalid" suffix so they are not picked up again.
type Watcher struct {
	dir     string
	fn      func(path string) error
	fsWatch *fsnotify.Watcher
	pending map[string]time.Time
	log     logger.Logger
}

// New returns a Watcher for dir. The directory is created if it does not exist.
// fn is called from the goroutine that runs the Watcher.
func New(dir string, fn func(path string) error) (*Watcher, error) {
	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return nil, err
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("cannot create fsnotify watcher: %w", err)
	}
	if err = fsWatch.Add(dir); err != nil {
		fsWatch.Close()
		return nil, fmt.Errorf("cannot watch directory: %w", err)
	}
	return &Watcher{
		dir:     dir,
		fn:      fn,
		fsWatch: fsWatch,
		pending: make(map[string]time.Time),
		log:     logger.New("watcher " + dir),
	}, nil
}

// Run processes existing files first and then waits for new ones until stopC is closed.
func (w *Watcher) Run(stopC chan struct{}) {
	defer w.fsWatch.Close()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Errorln("cannot read directory:", err.Error())
	}
	for _, e := range entries {
		if !e.IsDir() && isTorrentFile(e.Name()) {
			w.process(filepath.Join(w.dir, e.Name()))
		}
	}

	ticker := time.NewTicker(debounceDelay / 2)
	defer ticker.Stop()
	for {
		select {
		case event, ok := <-w.fsWatch.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !isTorrentFile(event.Name) {
				continue
			}
			w.log.Debugf("%s %s", event.Op, filepath.Base(event.Name))
			w.pending[event.Name] = time.Now()
		case err, ok := <-w.fsWatch.Errors:
			if !ok {
				return
			}
			w.log.Errorln("fsnotify error:", err.Error())
		case now := <-ticker.C:
			for path, t := range w.pending {
				if now.Sub(t) >= debounceDelay {
					delete(w.pending, path)
					w.process(path)
				}
			}
		case <-stopC:
			return
		}
	}
}

func (w *Watcher) process(path string) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		w.log.Errorln("cannot stat file:", err.Error())
		return
	}
	if fi.IsDir() {
		return
	}
	suffix := addedSuffix
	if err = w.fn(path); err != nil {
		w.log.Errorf("cannot add %s: %s", filepath.Base(path), err)
		suffix = invalidSuffix
	} else {
		w.log.Infof("added %s", filepath.Base(path))
	}
	if err = os.Rename(path, path+suffix); err != nil {
		w.log.Errorln("cannot rename file:", err.Error())
	}
}

func isTorrentFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".torrent")
}
