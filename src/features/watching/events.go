package watching

import (
	"path/filepath"
	"strings"
)

// EventKind represents the type of file system change
type EventKind string

const (
	FileCreated  EventKind = "created"
	FileModified EventKind = "modified"
	FileDeleted  EventKind = "deleted"
)

// Extension is a file extension a watcher can declare support for,
// lower-cased and without the leading dot.
type Extension string

const (
	ExtJPG  Extension = "jpg"
	ExtJPEG Extension = "jpeg"
	ExtJSON Extension = "json"
	ExtZIP  Extension = "zip"
	ExtTXT  Extension = "txt"
)

// FileEvent represents a change detected between two snapshots
type FileEvent struct {
	Path string
	Kind EventKind
}

// File returns the descriptor of the file the event refers to
func (e FileEvent) File() File {
	return NewFile(e.Path)
}

// File describes the file an event refers to. The file may no longer exist.
type File struct {
	Path string    // Absolute path
	Dir  string    // Containing directory
	Name string    // Base name, extension included
	Ext  Extension // Lower-cased extension, empty when there is none
}

// NewFile builds the descriptor of path
func NewFile(path string) File {
	name := filepath.Base(path)
	return File{
		Path: path,
		Dir:  filepath.Dir(path),
		Name: name,
		Ext:  Extension(strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))),
	}
}

// Stem returns the base name without its extension
func (f File) Stem() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}
