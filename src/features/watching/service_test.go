package watching

import (
	"context"
	"testing"
	"time"

	"github.com/contre95/fswatcher/src/features/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var everything = Capability{Kinds: []EventKind{FileCreated, FileModified, FileDeleted}}

// fakeTrigger lets a test decide when the loop polls.
type fakeTrigger struct {
	wake    chan struct{}
	tracked chan []string
}

func newFakeTrigger() *fakeTrigger {
	return &fakeTrigger{wake: make(chan struct{}, 1), tracked: make(chan []string, 16)}
}

func (f *fakeTrigger) Wake() <-chan struct{} { return f.wake }

func (f *fakeTrigger) Track(dirs []string) {
	select {
	case f.tracked <- dirs:
	default:
	}
}

func newTestService(t *testing.T, fs afero.Fs, workers int, trigger Trigger, watchers ...Watcher) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.WatchPath = "/watch"
	cfg.Dispatch.Workers = workers
	return NewService(fs, NewManager(time.Second, watchers...), trigger, config.NewManager(cfg))
}

func TestService_CycleBeforePrimeFails(t *testing.T) {
	service := newTestService(t, newTree(t), 1, nil)

	_, err := service.Cycle(context.Background())
	require.Error(t, err)
}

func TestService_CycleDispatchesEachKind(t *testing.T) {
	fs := newTree(t)
	recorder := &fakeWatcher{Capability: everything, name: "recorder"}
	service := newTestService(t, fs, 1, nil, recorder)
	ctx := context.Background()
	require.NoError(t, service.Prime(ctx))

	events, err := service.Cycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, events, "nothing changed since prime")

	require.NoError(t, afero.WriteFile(fs, "/watch/new.txt", []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/watch/a.txt", []byte("hello world"), 0644))
	require.NoError(t, fs.Remove("/watch/sub/b.json"))

	events, err = service.Cycle(ctx)
	require.NoError(t, err)

	expected := []FileEvent{
		{Path: "/watch/new.txt", Kind: FileCreated},
		{Path: "/watch/a.txt", Kind: FileModified},
		{Path: "/watch/sub/b.json", Kind: FileDeleted},
	}
	assert.Equal(t, expected, events)
	assert.Equal(t, expected, recorder.Calls())

	events, err = service.Cycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, events, "the new snapshot becomes the reference")

	status := service.Status()
	assert.Equal(t, uint64(3), status.Cycles)
	assert.Equal(t, 0, status.LastEvents)
	assert.Equal(t, 2, status.Files)
}

func TestService_ConcurrentDispatchKeepsKindOrder(t *testing.T) {
	fs := newTree(t)
	recorder := &fakeWatcher{Capability: everything, name: "recorder"}
	service := newTestService(t, fs, 4, nil, recorder)
	ctx := context.Background()
	require.NoError(t, service.Prime(ctx))

	for _, name := range []string{"c1.txt", "c2.txt", "c3.txt", "c4.txt", "c5.txt"} {
		require.NoError(t, afero.WriteFile(fs, "/watch/"+name, []byte("x"), 0644))
	}
	require.NoError(t, afero.WriteFile(fs, "/watch/a.txt", []byte("changed"), 0644))
	require.NoError(t, fs.Remove("/watch/sub/b.json"))

	_, err := service.Cycle(ctx)
	require.NoError(t, err)

	calls := recorder.Calls()
	require.Len(t, calls, 7)
	for _, call := range calls[:5] {
		assert.Equal(t, FileCreated, call.Kind)
	}
	assert.Equal(t, FileModified, calls[5].Kind)
	assert.Equal(t, FileDeleted, calls[6].Kind)
}

func TestService_FailingWatcherKeepsLoopAlive(t *testing.T) {
	fs := newTree(t)
	failing := &fakeWatcher{Capability: everything, name: "failing", panics: true}
	service := newTestService(t, fs, 1, nil, failing)
	ctx := context.Background()
	require.NoError(t, service.Prime(ctx))

	require.NoError(t, afero.WriteFile(fs, "/watch/new.txt", []byte("x"), 0644))
	_, err := service.Cycle(ctx)
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/watch/other.txt", []byte("x"), 0644))
	events, err := service.Cycle(ctx)
	require.NoError(t, err)

	assert.Len(t, events, 1)
	assert.Equal(t, uint64(2), service.Status().Failures)
}

func TestService_CaptureFailureKeepsPreviousSnapshot(t *testing.T) {
	fs := newTree(t)
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Chtimes("/watch/a.txt", mtime, mtime))
	recorder := &fakeWatcher{Capability: everything, name: "recorder"}
	service := newTestService(t, fs, 1, nil, recorder)
	ctx := context.Background()
	require.NoError(t, service.Prime(ctx))

	require.NoError(t, fs.RemoveAll("/watch"))
	_, err := service.Cycle(ctx)
	require.Error(t, err)
	assert.Empty(t, recorder.Calls(), "a missing root must not look like mass deletion")
	assert.NotEmpty(t, service.Status().LastError)

	require.NoError(t, fs.MkdirAll("/watch/sub", 0755))
	require.NoError(t, afero.WriteFile(fs, "/watch/a.txt", []byte("hello"), 0644))
	require.NoError(t, fs.Chtimes("/watch/a.txt", mtime, mtime))
	events, err := service.Cycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, []FileEvent{{Path: "/watch/sub/b.json", Kind: FileDeleted}}, events)
}

func TestService_TracksDirectoriesOnTrigger(t *testing.T) {
	trigger := newFakeTrigger()
	service := newTestService(t, newTree(t), 1, trigger)

	require.NoError(t, service.Prime(context.Background()))

	dirs := <-trigger.tracked
	assert.ElementsMatch(t, []string{"/watch", "/watch/sub"}, dirs)
}

func TestService_RunPollsOnWakeAndStopsOnCancel(t *testing.T) {
	fs := newTree(t)
	trigger := newFakeTrigger()
	recorder := &fakeWatcher{Capability: everything, name: "recorder"}
	service := newTestService(t, fs, 1, trigger, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()

	// Prime has run once the first directory list arrives.
	select {
	case <-trigger.tracked:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not prime")
	}

	require.NoError(t, afero.WriteFile(fs, "/watch/new.txt", []byte("x"), 0644))
	trigger.wake <- struct{}{}

	require.Eventually(t, func() bool {
		return len(recorder.Calls()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, FileEvent{Path: "/watch/new.txt", Kind: FileCreated}, recorder.Calls()[0])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
}
