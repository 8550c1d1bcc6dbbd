package library

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a recording file must sit unmodified
// before it is indexed. The serializer writes the JSON in one shot, but
// external tools may copy files in incrementally.
const DefaultDebounce = time.Second

// Watcher keeps a Library in sync with a recordings directory.
type Watcher struct {
	lib       *Library
	dir       string
	debounce  time.Duration
	fsWatcher *fsnotify.Watcher
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// Watch starts observing dir and indexing recording files as they
// settle. An initial Scan brings the catalog up to date first.
func (l *Library) Watch(dir string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if _, err := l.Scan(dir); err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		lib:       l,
		dir:       dir,
		debounce:  debounce,
		fsWatcher: fsWatcher,
		logger:    l.logger,
		pending:   make(map[string]time.Time),
		done:      make(chan struct{}),
	}
	w.wg.Add(2)
	go w.eventLoop()
	go w.settleLoop()
	return w, nil
}

// Stop ends the watch. Pending files are not flushed.
func (w *Watcher) Stop() error {
	close(w.done)
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			base := strings.TrimSuffix(filepath.Base(event.Name), ".json")

			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.mu.Lock()
				delete(w.pending, event.Name)
				w.mu.Unlock()
				if err := w.lib.Forget(base); err != nil {
					w.logger.Warn("forget failed", "base", base, "error", err)
				}
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "dir", w.dir, "error", err)
		}
	}
}

// settleLoop indexes pending files once they have been quiet for the
// debounce interval.
func (w *Watcher) settleLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case now := <-ticker.C:
			threshold := now.Add(-w.debounce)

			var settled []string
			w.mu.Lock()
			for path, lastMod := range w.pending {
				if lastMod.Before(threshold) {
					settled = append(settled, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range settled {
				changed, err := w.lib.Index(path)
				if err != nil {
					w.logger.Warn("index failed", "path", path, "error", err)
					continue
				}
				if changed {
					w.logger.Info("recording indexed", "path", path)
				}
			}
		}
	}
}
