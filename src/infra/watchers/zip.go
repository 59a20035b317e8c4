package watchers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/contre95/fswatcher/src/features/watching"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

// ZipWatcher extracts new archives into a sibling directory named after the
// archive.
type ZipWatcher struct {
	watching.Capability
	fs afero.Fs
}

func NewZipWatcher(fs afero.Fs) *ZipWatcher {
	return &ZipWatcher{
		Capability: watching.Capability{
			Extensions: []watching.Extension{watching.ExtZIP},
			Kinds:      []watching.EventKind{watching.FileCreated},
		},
		fs: fs,
	}
}

func (w *ZipWatcher) Name() string { return "zip" }

func (w *ZipWatcher) Handle(ctx context.Context, file watching.File, kind watching.EventKind) error {
	extractPath := filepath.Join(file.Dir, file.Stem())

	exists, err := afero.Exists(w.fs, extractPath)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", extractPath, err)
	}
	if exists {
		slog.Info("Extract directory already exists", "path", extractPath)
		return nil
	}

	if err := w.fs.MkdirAll(extractPath, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", extractPath, err)
	}
	if err := w.extractZip(ctx, file.Path, extractPath); err != nil {
		// A leftover directory would make every later attempt skip the archive.
		if rmErr := w.fs.RemoveAll(extractPath); rmErr != nil {
			slog.Warn("Failed to clean up partial extraction", "path", extractPath, "error", rmErr)
		}
		return err
	}

	slog.Info("Zip extracted", "path", extractPath)
	return nil
}

func (w *ZipWatcher) extractZip(ctx context.Context, zipPath, extractPath string) error {
	f, err := w.fs.Open(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open zip file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat zip file: %w", err)
	}

	reader, err := zip.NewReader(f, info.Size())
	if err != nil {
		return fmt.Errorf("failed to open zip file: %w", err)
	}

	for _, entry := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.extractEntry(entry, extractPath); err != nil {
			return err
		}
	}
	return nil
}

func (w *ZipWatcher) extractEntry(entry *zip.File, extractPath string) error {
	target := filepath.Join(extractPath, entry.Name)
	if target != extractPath && !strings.HasPrefix(target, extractPath+string(os.PathSeparator)) {
		return fmt.Errorf("zip entry %q escapes the extract directory", entry.Name)
	}

	if entry.FileInfo().IsDir() {
		return w.fs.MkdirAll(target, 0755)
	}
	if err := w.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to read zip entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	dst, err := w.fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}
	return nil
}
