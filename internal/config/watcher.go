package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/abxba0/fluentchat/internal/logging"
)

// debounce collapses the burst of events editors emit for one save.
const debounce = 100 * time.Millisecond

// Watcher calls a function whenever a single file changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(path string)
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// WatchFile starts watching path and calls onChange after it is written,
// created or renamed into place. The parent directory is watched so that
// editors replacing the file are noticed.
func WatchFile(path string, onChange func(path string)) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(absPath)); err != nil {
		w.Close()
		return nil, err
	}

	fw := &Watcher{
		watcher:  w,
		path:     absPath,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go fw.run()

	logging.Debug().Str("path", absPath).Msg("Watching file")
	return fw, nil
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.onChange(w.path)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Str("path", w.path).Msg("File watcher error")
		}
	}
}

// Close stops the watcher and waits for it to finish.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
	return w.watcher.Close()
}
