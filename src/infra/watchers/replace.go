package watchers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/contre95/fswatcher/src/features/watching"
	"github.com/spf13/afero"
	_ "golang.org/x/image/webp"
)

// memeResponse is the part of the meme API answer we use.
type memeResponse struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ReplaceWatcher puts a random image where a file was deleted, named after
// the deleted file with a .jpg extension.
type ReplaceWatcher struct {
	watching.Capability
	fs     afero.Fs
	fetch  Fetcher
	apiURL string

	// targets serializes writes to the same replacement path, which two
	// deletions in one cycle (x.txt and x.md) share.
	targets sync.Map
}

func NewReplaceWatcher(fs afero.Fs, fetch Fetcher, apiURL string) *ReplaceWatcher {
	return &ReplaceWatcher{
		Capability: watching.Capability{
			Kinds: []watching.EventKind{watching.FileDeleted},
		},
		fs:     fs,
		fetch:  fetch,
		apiURL: apiURL,
	}
}

func (w *ReplaceWatcher) Name() string { return "replace" }

func (w *ReplaceWatcher) Handle(ctx context.Context, file watching.File, kind watching.EventKind) error {
	var meme memeResponse
	if err := w.fetch.GetJSON(ctx, w.apiURL, &meme); err != nil {
		return fmt.Errorf("failed to fetch meme from API: %w", err)
	}
	if meme.URL == "" {
		return fmt.Errorf("meme API returned no image URL")
	}

	imgData, err := w.fetch.Get(ctx, meme.URL)
	if err != nil {
		return fmt.Errorf("failed to download meme image: %w", err)
	}
	jpg, err := toJPEG(imgData)
	if err != nil {
		return fmt.Errorf("failed to convert meme image %s: %w", meme.URL, err)
	}

	target := filepath.Join(file.Dir, file.Stem()+"."+string(watching.ExtJPG))
	lock, _ := w.targets.LoadOrStore(target, &sync.Mutex{})
	lock.(*sync.Mutex).Lock()
	defer lock.(*sync.Mutex).Unlock()

	if err := w.fs.MkdirAll(file.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", file.Dir, err)
	}
	if err := afero.WriteFile(w.fs, target, jpg, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	slog.Info("File replaced with meme", "deleted", file.Path, "path", target, "title", meme.Title)
	return nil
}

// toJPEG returns imgData unchanged when it already is a JPEG and re-encodes
// any other supported format.
func toJPEG(imgData []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return nil, err
	}
	if format == "jpeg" {
		return imgData, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpeg.DefaultQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
