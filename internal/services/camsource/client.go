// Package camsource discovers candidate camera streams from the camera
// manager's catalog endpoint. Discovery is best-effort; the daemon records
// whatever the settings file already lists when the catalog is unreachable.
package camsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dashcam/internal/config"
	"dashcam/internal/settings"
)

// Catalog lists candidate camera streams.
type Catalog interface {
	Discover(ctx context.Context) ([]settings.Candidate, error)
}

// NewCatalog builds a catalog client for the configured endpoint, or nil when
// no endpoint is configured.
func NewCatalog(cfg *config.Config) Catalog {
	url := strings.TrimSpace(cfg.MAVLink.CatalogURL)
	if url == "" {
		return nil
	}
	timeout := time.Duration(cfg.MAVLink.CatalogTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &httpCatalog{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type httpCatalog struct {
	url    string
	client *http.Client
}

// catalogEntry tolerates both "url" and "stream_url" field names; camera
// manager releases have used either.
type catalogEntry struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	StreamURL string `json:"stream_url"`
}

func (c *httpCatalog) Discover(ctx context.Context) ([]settings.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch camera catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("camera catalog returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var entries []catalogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode camera catalog: %w", err)
	}

	candidates := make([]settings.Candidate, 0, len(entries))
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		url := strings.TrimSpace(entry.URL)
		if url == "" {
			url = strings.TrimSpace(entry.StreamURL)
		}
		if name == "" || url == "" {
			continue
		}
		candidates = append(candidates, settings.Candidate{Name: name, URL: url})
	}
	return candidates, nil
}
