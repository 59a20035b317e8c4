package watchers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/contre95/fswatcher/src/features/watching"
	"github.com/nfnt/resize"
	"github.com/spf13/afero"
)

// JpgWatcher re-encodes new JPEG files at a lower quality.
type JpgWatcher struct {
	watching.Capability
	fs           afero.Fs
	quality      int
	maxDimension uint
}

// NewJpgWatcher creates a JpgWatcher. A maxDimension above zero also shrinks
// images whose width or height exceed it, keeping the aspect ratio.
func NewJpgWatcher(fs afero.Fs, quality, maxDimension int) *JpgWatcher {
	return &JpgWatcher{
		Capability: watching.Capability{
			Extensions: []watching.Extension{watching.ExtJPG, watching.ExtJPEG},
			Kinds:      []watching.EventKind{watching.FileCreated},
		},
		fs:           fs,
		quality:      quality,
		maxDimension: uint(max(maxDimension, 0)),
	}
}

func (w *JpgWatcher) Name() string { return "jpg" }

func (w *JpgWatcher) Handle(ctx context.Context, file watching.File, kind watching.EventKind) error {
	original, err := afero.ReadFile(w.fs, file.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file.Path, err)
	}

	optimized, err := w.optimizeImage(original)
	if err != nil {
		return fmt.Errorf("failed to optimize %s: %w", file.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if xxhash.Sum64(original) == xxhash.Sum64(optimized) {
		slog.Info("No actual change after re-encoding, skipping", "path", file.Path)
		return nil
	}

	if err := afero.WriteFile(w.fs, file.Path, optimized, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", file.Path, err)
	}
	slog.Info("Image optimized", "path", file.Path, "before", len(original), "after", len(optimized))
	return nil
}

// optimizeImage decodes imgData and encodes it again at the configured quality.
func (w *JpgWatcher) optimizeImage(imgData []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if w.maxDimension > 0 {
		bounds := img.Bounds()
		if uint(bounds.Dx()) > w.maxDimension || uint(bounds.Dy()) > w.maxDimension {
			img = resize.Thumbnail(w.maxDimension, w.maxDimension, img, resize.Lanczos3)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: w.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
