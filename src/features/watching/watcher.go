package watching

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidContent marks a file whose content a watcher cannot interpret.
// It is an expected outcome, reported as a warning.
var ErrInvalidContent = errors.New("invalid content")

// Watcher reacts to file events it declares support for.
type Watcher interface {
	// Name identifies the watcher in logs and metrics.
	Name() string
	// Supports reports whether Handle should be called for the event.
	Supports(file File, kind EventKind) bool
	// Handle performs the watcher's action. It must be safe to call again
	// for a file it already processed.
	Handle(ctx context.Context, file File, kind EventKind) error
}

// Capability declares the extensions and event kinds a watcher reacts to.
// An empty Extensions list matches any extension.
type Capability struct {
	Extensions []Extension
	Kinds      []EventKind
}

// Supports implements the predicate half of Watcher.
func (c Capability) Supports(file File, kind EventKind) bool {
	if !slices.Contains(c.Kinds, kind) {
		return false
	}
	return len(c.Extensions) == 0 || slices.Contains(c.Extensions, file.Ext)
}

// WatcherError is a failure returned by a watcher's Handle.
type WatcherError struct {
	Watcher string
	Path    string
	Err     error
}

func (e *WatcherError) Error() string {
	return fmt.Sprintf("%s watcher error on %s: %v", e.Watcher, e.Path, e.Err)
}

func (e *WatcherError) Unwrap() error {
	return e.Err
}
