package storage

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"modmap/internal/modmap"
)

// watcher invalidates checksum-cache entries when a collection file is
// touched by anyone, including out-of-process writers the advisory lock
// cannot see. Tampered files are then re-hashed on the next integrity
// check instead of waiting out the cache TTL.
type watcher struct {
	fs     *fsnotify.Watcher
	cache  *checksumCache
	logger modmap.Logger
	done   chan struct{}
}

// newWatcher starts watching dir. The caller must Close it.
func newWatcher(dir string, cache *checksumCache, logger modmap.Logger) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	w := &watcher{fs: fs, cache: cache, logger: logger, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.cache.Invalidate(event.Name)
				w.logger.Debug("checksum cache invalidated", "path", event.Name, "op", event.Op.String())
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watcher error", "error", err)
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	return err
}
