// Package watcher wakes the polling loop early when the kernel reports
// activity in the watched tree.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const notifyOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watcher turns fsnotify activity into debounced wake signals. It never
// produces file events itself; the polling loop still diffs snapshots.
type Watcher struct {
	watcher       *fsnotify.Watcher
	debounce      time.Duration
	debounceTimer *time.Timer
	debounceMutex sync.Mutex
	wake          chan struct{}

	trackMutex sync.Mutex
	tracked    map[string]struct{}

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewWatcher creates a Watcher that signals at most once per debounce
// window of activity.
func NewWatcher(debounce time.Duration) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  watcher,
		debounce: debounce,
		wake:     make(chan struct{}, 1),
		tracked:  make(map[string]struct{}),
		stopChan: make(chan struct{}),
	}, nil
}

// Start runs the event loop until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	slog.Info("Starting file watcher", "debounce", w.debounce)
	go w.watchLoop(ctx)
}

// Wake delivers a signal after activity settles.
func (w *Watcher) Wake() <-chan struct{} {
	return w.wake
}

// Track makes dirs the exact set of watched directories. fsnotify is not
// recursive, so the loop passes every directory it saw in its last snapshot.
func (w *Watcher) Track(dirs []string) {
	w.trackMutex.Lock()
	defer w.trackMutex.Unlock()

	wanted := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		wanted[dir] = struct{}{}
		if _, ok := w.tracked[dir]; ok {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			slog.Debug("Failed to watch directory", "path", dir, "error", err)
			continue
		}
		w.tracked[dir] = struct{}{}
	}

	for dir := range w.tracked {
		if _, ok := wanted[dir]; ok {
			continue
		}
		// Removed directories drop their watch on their own; the error is expected.
		_ = w.watcher.Remove(dir)
		delete(w.tracked, dir)
	}
}

// Tracked returns how many directories are currently watched.
func (w *Watcher) Tracked() int {
	w.trackMutex.Lock()
	defer w.trackMutex.Unlock()
	return len(w.tracked)
}

// Stop stops the event loop and releases the fsnotify watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		slog.Info("Stopping file watcher")
		close(w.stopChan)

		w.debounceMutex.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
			w.debounceTimer = nil
		}
		w.debounceMutex.Unlock()

		if err := w.watcher.Close(); err != nil {
			slog.Warn("Failed to close file watcher", "error", err)
		}
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			w.Stop()
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&notifyOps == 0 {
		return
	}
	slog.Debug("File system activity", "path", event.Name, "op", event.Op.String())

	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.emitWake)
}

// emitWake never blocks; a pending signal already covers this activity.
func (w *Watcher) emitWake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}
