package watchers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/contre95/fswatcher/src/features/watching"
	"github.com/spf13/afero"
)

// TxtWatcher appends a generated paragraph to text files, followed by a
// marker line that keeps it from processing the same file twice.
type TxtWatcher struct {
	watching.Capability
	fs     afero.Fs
	fetch  Fetcher
	apiURL string
	marker string
}

// NewTxtWatcher creates a TxtWatcher fetching filler text from apiURL.
func NewTxtWatcher(fs afero.Fs, fetch Fetcher, apiURL, marker string) *TxtWatcher {
	return &TxtWatcher{
		Capability: watching.Capability{
			Extensions: []watching.Extension{watching.ExtTXT},
			Kinds:      []watching.EventKind{watching.FileCreated, watching.FileModified},
		},
		fs:     fs,
		fetch:  fetch,
		apiURL: apiURL,
		marker: marker,
	}
}

func (w *TxtWatcher) Name() string { return "txt" }

func (w *TxtWatcher) Handle(ctx context.Context, file watching.File, kind watching.EventKind) error {
	processed, err := w.isAlreadyProcessed(file.Path)
	if err != nil {
		return err
	}
	if processed {
		slog.Debug("Text file already processed, skipping", "path", file.Path)
		return nil
	}

	body, err := w.fetch.Get(ctx, w.apiURL)
	if err != nil {
		return fmt.Errorf("failed to fetch filler text: %w", err)
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		slog.Warn("Filler text source returned nothing, skipping", "path", file.Path)
		return nil
	}

	if err := w.appendGeneratedText(file.Path, text); err != nil {
		return err
	}
	slog.Info("Generated text appended", "path", file.Path, "bytes", len(text))
	return nil
}

// isAlreadyProcessed reports whether the last non-empty line is the marker.
func (w *TxtWatcher) isAlreadyProcessed(path string) (bool, error) {
	content, err := afero.ReadFile(w.fs, path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	last := ""
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), len(content)+1)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	return last == w.marker, nil
}

func (w *TxtWatcher) appendGeneratedText(path, text string) error {
	f, err := w.fs.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString("\n\n" + text + "\n" + w.marker); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return nil
}
