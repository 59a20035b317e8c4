package watching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWatcher records its calls and fails the way it is told to.
type fakeWatcher struct {
	Capability
	name   string
	err    error
	panics bool
	block  bool

	// release, when set, blocks Handle until it is closed, ignoring ctx.
	release chan struct{}

	mu    sync.Mutex
	calls []FileEvent
}

func (f *fakeWatcher) Name() string { return f.name }

func (f *fakeWatcher) Handle(ctx context.Context, file File, kind EventKind) error {
	f.mu.Lock()
	f.calls = append(f.calls, FileEvent{Path: file.Path, Kind: kind})
	f.mu.Unlock()

	if f.panics {
		panic("boom")
	}
	if f.release != nil {
		<-f.release
		return nil
	}
	if f.block {
		<-ctx.Done()
		return fmt.Errorf("waiting for upstream: %w", ctx.Err())
	}
	return f.err
}

func (f *fakeWatcher) Calls() []FileEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FileEvent, len(f.calls))
	copy(out, f.calls)
	return out
}

var txtCreated = Capability{Extensions: []Extension{ExtTXT}, Kinds: []EventKind{FileCreated}}

func TestCapability_Supports(t *testing.T) {
	jpg := Capability{Extensions: []Extension{ExtJPG, ExtJPEG}, Kinds: []EventKind{FileCreated}}
	assert.True(t, jpg.Supports(NewFile("/w/a.JPG"), FileCreated))
	assert.True(t, jpg.Supports(NewFile("/w/a.jpeg"), FileCreated))
	assert.False(t, jpg.Supports(NewFile("/w/a.jpg"), FileModified))
	assert.False(t, jpg.Supports(NewFile("/w/a.png"), FileCreated))

	anyDeleted := Capability{Kinds: []EventKind{FileDeleted}}
	assert.True(t, anyDeleted.Supports(NewFile("/w/a.bin"), FileDeleted))
	assert.True(t, anyDeleted.Supports(NewFile("/w/noext"), FileDeleted))
	assert.False(t, anyDeleted.Supports(NewFile("/w/a.bin"), FileCreated))
}

func TestManager_FailingWatcherDoesNotStopTheNext(t *testing.T) {
	failing := &fakeWatcher{Capability: txtCreated, name: "failing", err: errors.New("upstream down")}
	second := &fakeWatcher{Capability: txtCreated, name: "second"}
	manager := NewManager(0, failing, second)

	result := manager.Dispatch(context.Background(), NewFile("/w/note.txt"), FileCreated)

	assert.Equal(t, DispatchResult{Matched: 2, Failed: 1}, result)
	assert.Len(t, failing.Calls(), 1)
	assert.Len(t, second.Calls(), 1)
}

func TestManager_RecoversFromPanic(t *testing.T) {
	panicking := &fakeWatcher{Capability: txtCreated, name: "panicking", panics: true}
	second := &fakeWatcher{Capability: txtCreated, name: "second"}
	manager := NewManager(0, panicking, second)

	var result DispatchResult
	require.NotPanics(t, func() {
		result = manager.Dispatch(context.Background(), NewFile("/w/note.txt"), FileCreated)
	})

	assert.Equal(t, 1, result.Failed)
	assert.Len(t, second.Calls(), 1)
}

func TestManager_TimeoutIsAHandledFailure(t *testing.T) {
	hung := &fakeWatcher{Capability: txtCreated, name: "hung", block: true}
	second := &fakeWatcher{Capability: txtCreated, name: "second"}
	manager := NewManager(20*time.Millisecond, hung, second)

	start := time.Now()
	result := manager.Dispatch(context.Background(), NewFile("/w/note.txt"), FileCreated)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, DispatchResult{Matched: 2, Failed: 1}, result)
	assert.Len(t, second.Calls(), 1)
}

// brokenPredicate panics when asked whether it supports an event.
type brokenPredicate struct {
	fakeWatcher
}

func (b *brokenPredicate) Supports(File, EventKind) bool {
	panic("bad predicate")
}

func TestManager_PanickingSupportsDoesNotStopTheNext(t *testing.T) {
	broken := &brokenPredicate{fakeWatcher: fakeWatcher{name: "broken"}}
	second := &fakeWatcher{Capability: txtCreated, name: "second"}
	manager := NewManager(0, broken, second)

	var result DispatchResult
	require.NotPanics(t, func() {
		result = manager.Dispatch(context.Background(), NewFile("/w/note.txt"), FileCreated)
	})

	assert.Equal(t, DispatchResult{Matched: 1, Failed: 1}, result)
	assert.Empty(t, broken.Calls())
	assert.Len(t, second.Calls(), 1)
}

func TestManager_TimeoutBoundsHandlersIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	stuck := &fakeWatcher{Capability: txtCreated, name: "stuck", release: release}
	second := &fakeWatcher{Capability: txtCreated, name: "second"}
	manager := NewManager(20*time.Millisecond, stuck, second)

	done := make(chan DispatchResult, 1)
	go func() {
		done <- manager.Dispatch(context.Background(), NewFile("/w/note.txt"), FileCreated)
	}()

	select {
	case result := <-done:
		assert.Equal(t, DispatchResult{Matched: 2, Failed: 1}, result)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch waited for a handler past its timeout")
	}
	assert.Len(t, second.Calls(), 1)
}

func TestManager_OnlySupportingWatchersAreCalled(t *testing.T) {
	txt := &fakeWatcher{Capability: txtCreated, name: "txt"}
	zip := &fakeWatcher{Capability: Capability{Extensions: []Extension{ExtZIP}, Kinds: []EventKind{FileCreated}}, name: "zip"}
	deleted := &fakeWatcher{Capability: Capability{Kinds: []EventKind{FileDeleted}}, name: "deleted"}
	manager := NewManager(0)
	manager.Register(txt, zip, deleted)

	result := manager.Dispatch(context.Background(), NewFile("/w/note.txt"), FileCreated)
	assert.Equal(t, DispatchResult{Matched: 1}, result)
	assert.Len(t, txt.Calls(), 1)
	assert.Empty(t, zip.Calls())
	assert.Empty(t, deleted.Calls())

	result = manager.Dispatch(context.Background(), NewFile("/w/note.txt"), FileDeleted)
	assert.Equal(t, DispatchResult{Matched: 1}, result)
	assert.Len(t, deleted.Calls(), 1)
}

func TestManager_InvalidContentIsCountedAsFailure(t *testing.T) {
	invalid := &fakeWatcher{
		Capability: txtCreated,
		name:       "invalid",
		err:        fmt.Errorf("parse note.txt: %w", ErrInvalidContent),
	}
	manager := NewManager(0, invalid)

	result := manager.Dispatch(context.Background(), NewFile("/w/note.txt"), FileCreated)

	assert.Equal(t, 1, result.Failed)
}

func TestManager_WatchersKeepRegistrationOrder(t *testing.T) {
	a := &fakeWatcher{name: "a"}
	b := &fakeWatcher{name: "b"}
	manager := NewManager(0, a)
	manager.Register(b)

	names := []string{}
	for _, w := range manager.Watchers() {
		names = append(names, w.Name())
	}
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestWatcherError_Unwraps(t *testing.T) {
	err := &WatcherError{Watcher: "json", Path: "/w/bad.json", Err: ErrInvalidContent}

	assert.ErrorIs(t, err, ErrInvalidContent)
	assert.Contains(t, err.Error(), "json watcher error")
}
