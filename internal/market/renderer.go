package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPRenderer fetches listing pages with a plain HTTP GET. The sales
// history script and the textual listing total are part of the
// initial document; only the depth table may be script-injected, and
// the analyzer degrades to the textual total when it is absent. A
// headless browser implementation can replace this through the
// PageRenderer interface.
type HTTPRenderer struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPRenderer(baseURL string, jar http.CookieJar, timeout time.Duration) *HTTPRenderer {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPRenderer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
	}
}

func (r *HTTPRenderer) RenderListing(ctx context.Context, appID int, itemKey string) (string, error) {
	reqURL := fmt.Sprintf("%s/market/listings/%d/%s", r.baseURL, appID, url.PathEscape(itemKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build listing request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch listing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("listing page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read listing page: %w", err)
	}
	return string(body), nil
}
