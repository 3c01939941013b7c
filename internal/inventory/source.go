package inventory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/epokrso/steam-analyzer/config"
	"github.com/epokrso/steam-analyzer/logger"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Source fetches inventory snapshots for the tracked account using the
// session cookie jar produced by the external login step.
type Source struct {
	baseURL    string
	steamID64  string
	language   string
	count      int
	httpClient *http.Client
	log        *logger.Log
}

// NewSource creates a snapshot source. The jar must already hold the
// account's session cookies.
func NewSource(baseURL, steamID64, language string, jar http.CookieJar, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Source{
		baseURL:   baseURL,
		steamID64: steamID64,
		language:  language,
		count:     2000,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		log: logger.GetLogger(),
	}
}

// Fetch retrieves and parses the current snapshot for one catalog
// entry. Any transport error, non-2xx status, non-JSON body or
// non-success flag is fatal for that entry this cycle.
func (s *Source) Fetch(ctx context.Context, entry config.CatalogEntry) (*Snapshot, error) {
	url := fmt.Sprintf("%s/inventory/%s/%d/%d?l=%s&count=%d",
		s.baseURL, s.steamID64, entry.AppID, entry.ContextID, s.language, s.count)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("%s/profiles/%s/inventory/", s.baseURL, s.steamID64))
	req.Header.Set("User-Agent", defaultUserAgent)

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot response: %w", err)
	}

	s.log.WithComponent("snapshot_source").WithFields(logger.Fields{
		"app_id":      entry.AppID,
		"status":      resp.StatusCode,
		"bytes":       len(body),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("snapshot fetched")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot request for app %d returned status %d", entry.AppID, resp.StatusCode)
	}

	snap, err := ParseSnapshot(body)
	if err != nil {
		return nil, fmt.Errorf("app %d: %w", entry.AppID, err)
	}
	return snap, nil
}
