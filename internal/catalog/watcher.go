package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/shehryarbajwa/deckard-mini/internal/logging"
)

// Watcher reloads a catalog file when it changes on disk. Tabs opened after
// a reload see the new catalog; open tabs keep theirs.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	pending  *time.Timer
	mu       sync.Mutex
	logger   *logrus.Entry
	onReload func(*Catalog)
}

// NewWatcher watches the directory of path, since editors often replace
// files instead of writing them in place.
func NewWatcher(path string, debounce time.Duration, onReload func(*Catalog)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	return &Watcher{
		watcher:  watcher,
		path:     abs,
		debounce: debounce,
		logger:   logging.NewLogger("catalog-watcher"),
		onReload: onReload,
	}, nil
}

// Start processes file events. It blocks until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.mu.Lock()
			if w.pending != nil {
				w.pending.Stop()
			}
			w.mu.Unlock()
			w.watcher.Close()
			return
		}
	}
}

// schedule reloads once writes have been quiet for the debounce period
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Reset(w.debounce)
		return
	}
	w.pending = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	c, err := Load(w.path)
	if err != nil {
		// keep serving the previous catalog
		w.logger.WithError(err).Warn("Catalog reload failed")
		return
	}
	w.logger.WithField("modules", len(c.Modules)).Info("Catalog reloaded")
	if w.onReload != nil {
		w.onReload(c)
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
