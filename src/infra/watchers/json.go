package watchers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/contre95/fswatcher/src/features/watching"
	"github.com/spf13/afero"
)

// JSONWatcher forwards the content of JSON files to a webhook.
type JSONWatcher struct {
	watching.Capability
	fs         afero.Fs
	post       Poster
	webhookURL string
}

func NewJSONWatcher(fs afero.Fs, post Poster, webhookURL string) *JSONWatcher {
	return &JSONWatcher{
		Capability: watching.Capability{
			Extensions: []watching.Extension{watching.ExtJSON},
			Kinds:      []watching.EventKind{watching.FileCreated, watching.FileModified},
		},
		fs:         fs,
		post:       post,
		webhookURL: webhookURL,
	}
}

func (w *JSONWatcher) Name() string { return "json" }

func (w *JSONWatcher) Handle(ctx context.Context, file watching.File, kind watching.EventKind) error {
	payload, err := w.parseJSONFile(file.Path)
	if err != nil {
		return err
	}

	if err := w.post.PostJSON(ctx, w.webhookURL, payload); err != nil {
		return fmt.Errorf("failed to forward %s: %w", file.Name, err)
	}
	slog.Info("JSON forwarded to webhook", "path", file.Path, "event", kind)
	return nil
}

// parseJSONFile returns the file's payload in compact form. Numbers and key
// order are kept as written. A document that is only null carries no
// payload and counts as invalid.
func (w *JSONWatcher) parseJSONFile(path string) ([]byte, error) {
	raw, err := afero.ReadFile(w.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid JSON in file %s: %w", path, watching.ErrInvalidContent)
	}

	var payload bytes.Buffer
	if err := json.Compact(&payload, raw); err != nil {
		return nil, fmt.Errorf("invalid JSON in file %s: %w: %v", path, watching.ErrInvalidContent, err)
	}
	if payload.String() == "null" {
		return nil, fmt.Errorf("null JSON document in file %s: %w", path, watching.ErrInvalidContent)
	}
	return payload.Bytes(), nil
}
