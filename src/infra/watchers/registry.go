// Package watchers holds the watcher variants the dispatch engine routes
// file events to.
package watchers

import (
	"context"
	"log/slog"
	"time"

	"github.com/contre95/fswatcher/src/features/config"
	"github.com/contre95/fswatcher/src/features/watching"
	"github.com/contre95/fswatcher/src/infra/httpclient"
	"github.com/spf13/afero"
)

// Fetcher downloads content from external services.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
	GetJSON(ctx context.Context, url string, v any) error
}

// Poster delivers JSON payloads to external services.
type Poster interface {
	PostJSON(ctx context.Context, url string, payload []byte) error
}

// NewClients builds the HTTP clients the watchers use: one for fetching,
// which retries, and one for forwarding, which delivers each payload once.
func NewClients(cfg *config.Config) (*httpclient.Client, *httpclient.Client) {
	common := []httpclient.Option{
		httpclient.WithUserAgent(cfg.HTTP.UserAgent),
		httpclient.WithTimeout(time.Duration(cfg.HTTP.Timeout) * time.Second),
		httpclient.WithRateLimit(cfg.HTTP.RequestsPerSecond),
	}
	fetch := httpclient.New(append(common, httpclient.WithRetryMax(cfg.HTTP.Retries))...)
	post := httpclient.New(append(common, httpclient.WithRetryMax(0))...)
	return fetch, post
}

// Registry returns the enabled watchers in dispatch order.
func Registry(cfg *config.Config, fs afero.Fs, fetch Fetcher, post Poster) []watching.Watcher {
	var registry []watching.Watcher

	if c := cfg.Watchers.Txt; c.Enabled {
		registry = append(registry, NewTxtWatcher(fs, fetch, c.APIURL, c.Marker))
	}
	if c := cfg.Watchers.JSON; c.Enabled {
		registry = append(registry, NewJSONWatcher(fs, post, c.WebhookURL))
	}
	if c := cfg.Watchers.Jpg; c.Enabled {
		registry = append(registry, NewJpgWatcher(fs, c.Quality, c.MaxDimension))
	}
	if cfg.Watchers.Zip.Enabled {
		registry = append(registry, NewZipWatcher(fs))
	}
	if c := cfg.Watchers.Replace; c.Enabled {
		registry = append(registry, NewReplaceWatcher(fs, fetch, c.APIURL))
	}

	for _, w := range registry {
		slog.Debug("Registered watcher", "name", w.Name())
	}
	return registry
}
