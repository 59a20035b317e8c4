package watching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/contre95/fswatcher/src/features/metrics"
)

// DispatchResult counts what happened to a single event.
type DispatchResult struct {
	Matched int // Watchers whose Supports returned true
	Failed  int // Handle calls that failed plus predicates that panicked
}

// errPanic marks an error recovered from a panicking watcher.
var errPanic = errors.New("panic")

// Manager holds the ordered watchers and routes each event to every watcher
// that supports it. A failing watcher never stops the others.
type Manager struct {
	mu       sync.RWMutex
	watchers []Watcher
	timeout  time.Duration
}

// NewManager creates a Manager. A zero timeout lets Handle run unbounded.
func NewManager(timeout time.Duration, watchers ...Watcher) *Manager {
	return &Manager{
		watchers: watchers,
		timeout:  timeout,
	}
}

// Register appends watchers to the end of the sequence.
func (m *Manager) Register(watchers ...Watcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, watchers...)
}

// Watchers returns the registered watchers in dispatch order.
func (m *Manager) Watchers() []Watcher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Watcher, len(m.watchers))
	copy(out, m.watchers)
	return out
}

// Dispatch calls Handle once on every watcher supporting the event.
func (m *Manager) Dispatch(ctx context.Context, file File, kind EventKind) DispatchResult {
	var result DispatchResult
	for _, w := range m.Watchers() {
		supported, err := m.supports(w, file, kind)
		if err != nil {
			result.Failed++
			m.report(w, file, err)
			continue
		}
		if !supported {
			continue
		}
		result.Matched++
		if err := m.invoke(ctx, w, file, kind); err != nil {
			result.Failed++
			m.report(w, file, err)
		}
	}
	return result
}

// supports evaluates the watcher's predicate, turning a panic into an error.
func (m *Manager) supports(w Watcher, file File, kind EventKind) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("supports: %w: %v", errPanic, r)
			metrics.WatcherInvocationsTotal.WithLabelValues(w.Name(), metrics.ResultPanic).Inc()
		}
	}()
	return w.Supports(file, kind), nil
}

// invoke runs one Handle under the timeout budget and records its outcome.
func (m *Manager) invoke(ctx context.Context, w Watcher, file File, kind EventKind) error {
	start := time.Now()
	err := m.run(ctx, w, file, kind)

	result := metrics.ResultOK
	switch {
	case err == nil:
	case errors.Is(err, errPanic):
		result = metrics.ResultPanic
	case errors.Is(err, context.DeadlineExceeded):
		result = metrics.ResultTimeout
	case errors.Is(err, ErrInvalidContent):
		result = metrics.ResultInvalid
	default:
		result = metrics.ResultError
	}
	metrics.WatcherDuration.WithLabelValues(w.Name()).Observe(time.Since(start).Seconds())
	metrics.WatcherInvocationsTotal.WithLabelValues(w.Name(), result).Inc()
	return err
}

// run returns once Handle does or the timeout expires, whichever is first.
// A Handle that ignores its context keeps running in the background after
// the timeout; its result is dropped.
func (m *Manager) run(ctx context.Context, w Watcher, file File, kind EventKind) error {
	if m.timeout <= 0 {
		return safeHandle(ctx, w, file, kind)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- safeHandle(ctx, w, file, kind)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("gave up waiting for %s watcher: %w", w.Name(), ctx.Err())
	}
}

func safeHandle(ctx context.Context, w Watcher, file File, kind EventKind) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return w.Handle(ctx, file, kind)
}

func (m *Manager) report(w Watcher, file File, err error) {
	wrapped := &WatcherError{Watcher: w.Name(), Path: file.Path, Err: err}
	if errors.Is(err, ErrInvalidContent) {
		slog.Warn(wrapped.Error(), "watcher", w.Name(), "path", file.Path)
		return
	}
	slog.Error(wrapped.Error(), "watcher", w.Name(), "path", file.Path)
}
