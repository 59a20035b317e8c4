package watching

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// FileMetadata is the part of a file's status that usually changes when the
// file changes.
type FileMetadata struct {
	Size       int64
	ModifiedAt time.Time
}

// Changed reports whether either signal differs. Touching a file without
// altering its content still counts as a change.
func (m FileMetadata) Changed(other FileMetadata) bool {
	return m.Size != other.Size || !m.ModifiedAt.Equal(other.ModifiedAt)
}

// Snapshot maps the absolute path of every regular file under the watched
// root to its metadata at one instant.
type Snapshot map[string]FileMetadata

// Capture walks root and records every regular file found below it.
func Capture(fs afero.Fs, root string) (Snapshot, error) {
	snapshot, _, err := CaptureTree(fs, root)
	return snapshot, err
}

// CaptureTree is Capture that also returns every directory it visited,
// root included.
//
// Entries that vanish or can't be read while walking are left out of the
// snapshot; only a failure on root itself is returned.
func CaptureTree(fs afero.Fs, root string) (Snapshot, []string, error) {
	root = filepath.Clean(root)
	snapshot := make(Snapshot)
	var dirs []string

	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Debug("Skipping unreadable path", "path", path, "error", err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		snapshot[filepath.Clean(path)] = FileMetadata{
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to capture snapshot of %s: %w", root, err)
	}
	return snapshot, dirs, nil
}
