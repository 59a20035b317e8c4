package watching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/contre95/fswatcher/src/features/config"
	"github.com/contre95/fswatcher/src/features/metrics"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Trigger wakes the polling loop before the interval elapses, e.g. when the
// operating system reports activity in the watched tree.
type Trigger interface {
	// Wake delivers a value whenever a poll should happen now.
	Wake() <-chan struct{}
	// Track replaces the set of directories the trigger observes.
	Track(dirs []string)
}

// Status is a point-in-time view of the polling loop.
type Status struct {
	WatchPath   string    `json:"watch_path"`
	Cycles      uint64    `json:"cycles"`
	LastCycleAt time.Time `json:"last_cycle_at"`
	LastEvents  int       `json:"last_events"`
	Files       int       `json:"files"`
	Failures    uint64    `json:"failures"`
	LastError   string    `json:"last_error,omitempty"`
}

// Service runs the polling loop: capture, wait, capture, diff, dispatch.
type Service struct {
	fs      afero.Fs
	manager *Manager
	trigger Trigger
	config  *config.Manager

	// previous is only touched by the goroutine running Prime/Cycle/Run.
	previous Snapshot

	statusMu sync.RWMutex
	status   Status
}

// NewService creates the polling loop. trigger may be nil.
func NewService(fs afero.Fs, manager *Manager, trigger Trigger, cfgManager *config.Manager) *Service {
	return &Service{
		fs:      fs,
		manager: manager,
		trigger: trigger,
		config:  cfgManager,
		status:  Status{WatchPath: cfgManager.Get().WatchPath},
	}
}

// Prime captures the snapshot the first cycle compares against.
func (s *Service) Prime(ctx context.Context) error {
	snapshot, err := s.capture()
	if err != nil {
		return err
	}
	s.previous = snapshot
	s.statusMu.Lock()
	s.status.Files = len(snapshot)
	s.statusMu.Unlock()
	slog.Info("Initial snapshot captured", "path", s.config.Get().WatchPath, "files", len(snapshot))
	return nil
}

// Run primes the loop and then polls until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Prime(ctx); err != nil {
		return err
	}

	interval := s.config.Get().Interval()
	slog.Info("Watching folder", "path", s.config.Get().WatchPath, "interval", interval)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	var wake <-chan struct{}
	if s.trigger != nil {
		wake = s.trigger.Wake()
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping polling loop", "cycles", s.Status().Cycles)
			return nil
		case <-timer.C:
		case <-wake:
			slog.Debug("Woken up by notification trigger")
			timer.Stop()
		}

		if _, err := s.Cycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Polling cycle failed", "error", err)
		}
		timer.Reset(interval)
	}
}

// Cycle captures a new snapshot, dispatches the differences to the watchers
// and makes the new snapshot the reference for the next cycle. When the
// capture fails the previous snapshot is kept and nothing is dispatched.
// Cycle must not be called concurrently with itself or Run.
func (s *Service) Cycle(ctx context.Context) ([]FileEvent, error) {
	if s.previous == nil {
		return nil, fmt.Errorf("polling loop not primed")
	}
	start := time.Now()

	current, err := s.capture()
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	events := Diff(s.previous, current)
	logger := slog.With("cycle", uuid.New().String())
	if len(events) > 0 {
		logger.Debug("Changes detected", "events", len(events))
	}

	failures := s.dispatch(ctx, logger, events)
	s.previous = current

	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	s.statusMu.Lock()
	s.status.Cycles++
	s.status.LastCycleAt = start
	s.status.LastEvents = len(events)
	s.status.Files = len(current)
	s.status.Failures += uint64(failures)
	s.status.LastError = ""
	s.statusMu.Unlock()

	return events, ctx.Err()
}

// Status returns a copy of the loop counters.
func (s *Service) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

func (s *Service) capture() (Snapshot, error) {
	snapshot, dirs, err := CaptureTree(s.fs, s.config.Get().WatchPath)
	if err != nil {
		return nil, err
	}
	metrics.SnapshotFiles.Set(float64(len(snapshot)))
	if s.trigger != nil {
		s.trigger.Track(dirs)
	}
	return snapshot, nil
}

// dispatch hands events to the manager one kind at a time, so every
// creation is handled before any modification and every modification before
// any deletion. Inside a kind up to Dispatch.Workers events run at once; a
// path appears at most once per cycle, so a path is never handled twice
// concurrently.
func (s *Service) dispatch(ctx context.Context, logger *slog.Logger, events []FileEvent) int {
	cfg := s.config.Get()
	workers := max(cfg.Dispatch.Workers, 1)

	var mu sync.Mutex
	failures := 0

	for _, group := range groupByKind(events) {
		if ctx.Err() != nil {
			break
		}
		var g errgroup.Group
		g.SetLimit(workers)
		for _, event := range group {
			g.Go(func() error {
				metrics.EventsTotal.WithLabelValues(string(event.Kind)).Inc()
				if cfg.LogChanges {
					logChange(logger, event)
				}
				result := s.manager.Dispatch(ctx, event.File(), event.Kind)
				if result.Failed > 0 {
					mu.Lock()
					failures += result.Failed
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return failures
}

func (s *Service) recordFailure(err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.LastError = err.Error()
}

func logChange(logger *slog.Logger, event FileEvent) {
	switch event.Kind {
	case FileCreated:
		logger.Info("File created", "path", event.Path)
	case FileModified:
		logger.Info("File modified", "path", event.Path)
	case FileDeleted:
		logger.Info("File deleted", "path", event.Path)
	}
}
