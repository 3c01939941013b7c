// Package market talks to the community marketplace: a rate-limited
// price client, the listing page extractor and the turnover analyzer.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/epokrso/steam-analyzer/config"
	"github.com/epokrso/steam-analyzer/internal/control"
	"github.com/epokrso/steam-analyzer/internal/currency"
	"github.com/epokrso/steam-analyzer/logger"
)

// ErrInvalidSession reports that the marketplace answered with
// something other than JSON, which means the session cookies are no
// longer valid. It aborts processing of the current catalog entry but
// never the process.
var ErrInvalidSession = errors.New("market session invalid: non-JSON response")

// PageRenderer renders a listing page to its final HTML. Depth and
// history data are injected by client-side script, so the raw document
// is not enough; rendering is done by an external headless browser
// collaborator.
type PageRenderer interface {
	RenderListing(ctx context.Context, appID int, itemKey string) (string, error)
}

// Client serializes all outbound marketplace requests behind a single
// shared last-call timestamp. The upstream throttle is per account,
// not per endpoint, so price lookups and listing page loads share the
// same pacing.
type Client struct {
	baseURL    string
	currency   int
	language   string
	httpClient *http.Client
	renderer   PageRenderer
	signals    *control.Signals
	log        *logger.Log

	minDelay   time.Duration
	jitter     time.Duration
	maxRetries int

	// lastCall is owned by this client and mutated only here. The poll
	// loop is the sole caller, so no lock is needed.
	lastCall time.Time
}

// NewClient creates a marketplace client. The jar must hold the
// account session cookies; renderer may be nil when listing analysis
// is not used.
func NewClient(baseURL string, cfg config.MarketConfig, currencyCode int, language string, jar http.CookieJar, renderer PageRenderer, signals *control.Signals) *Client {
	return &Client{
		baseURL:  baseURL,
		currency: currencyCode,
		language: language,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: cfg.Timeout,
		},
		renderer:   renderer,
		signals:    signals,
		log:        logger.GetLogger(),
		minDelay:   cfg.MinDelay,
		jitter:     cfg.Jitter,
		maxRetries: cfg.MaxRetries,
	}
}

// pace blocks until at least minDelay (plus jitter) has passed since
// the previous marketplace call, whatever endpoint it hit. Returns
// false when interrupted.
func (c *Client) pace() bool {
	wait := c.minDelay - time.Since(c.lastCall)
	if wait > 0 {
		extra := time.Duration(0)
		if c.jitter > 0 {
			extra = time.Duration(rand.Int63n(int64(c.jitter)))
		}
		if !c.signals.Sleep(wait + extra) {
			return false
		}
	}
	c.lastCall = time.Now()
	return true
}

type priceOverviewResponse struct {
	Success     bool   `json:"success"`
	LowestPrice string `json:"lowest_price"`
	MedianPrice string `json:"median_price"`
}

// PriceOverview looks up the current unit price for an item. The
// second return is false when the marketplace has no price for it,
// which is a normal outcome, not an error. A non-JSON body returns
// ErrInvalidSession.
func (c *Client) PriceOverview(ctx context.Context, appID int, itemKey string) (int64, bool, error) {
	query := url.Values{}
	query.Set("appid", fmt.Sprintf("%d", appID))
	query.Set("currency", fmt.Sprintf("%d", c.currency))
	query.Set("market_hash_name", itemKey)
	reqURL := c.baseURL + "/market/priceoverview/?" + query.Encode()

	log := c.log.WithComponent("market_client").WithFields(logger.Fields{
		"app_id": appID,
		"item":   itemKey,
	})

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if c.signals.Interrupted() || ctx.Err() != nil {
			return 0, false, nil
		}
		if !c.pace() {
			return 0, false, nil
		}

		body, status, err := c.get(ctx, reqURL)
		if err != nil {
			// Transport failure; retry with a short pause, then treat
			// the price as unknown.
			log.WithError(err).Warn("price overview request failed")
			if !c.signals.Sleep(2 * time.Second) {
				return 0, false, nil
			}
			continue
		}

		if status == http.StatusTooManyRequests {
			backoff := backoffDuration(attempt)
			log.WithFields(logger.Fields{
				"attempt":    attempt,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("rate limited, backing off")
			if !c.signals.Sleep(backoff) {
				return 0, false, nil
			}
			continue
		}

		if status != http.StatusOK {
			// Terminal for this call; the item stays unpriced.
			log.WithFields(logger.Fields{"status": status}).Warn("price overview returned error status")
			return 0, false, nil
		}

		var overview priceOverviewResponse
		if err := json.Unmarshal(body, &overview); err != nil {
			return 0, false, fmt.Errorf("%w: %s", ErrInvalidSession, snippet(body))
		}
		if !overview.Success {
			return 0, false, nil
		}

		priceText := overview.LowestPrice
		if priceText == "" {
			priceText = overview.MedianPrice
		}
		if priceText == "" {
			return 0, false, nil
		}

		cents, ok := currency.ParseCents(priceText)
		if !ok {
			return 0, false, nil
		}
		return cents, true, nil
	}

	log.Warn("too many rate limit responses, giving up on item")
	return 0, false, nil
}

// ListingPage renders an item's listing page through the external
// renderer, paced by the shared rate limiter.
func (c *Client) ListingPage(ctx context.Context, appID int, itemKey string) (string, error) {
	if c.renderer == nil {
		return "", fmt.Errorf("no page renderer configured")
	}
	if !c.pace() {
		return "", context.Canceled
	}
	return c.renderer.RenderListing(ctx, appID, itemKey)
}

// Interrupted reports whether a stop or update has been requested.
func (c *Client) Interrupted() bool {
	return c.signals.Interrupted()
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// backoffDuration is min(60, 2^attempt) seconds plus up to 2s of jitter.
func backoffDuration(attempt int) time.Duration {
	secs := int64(1) << uint(attempt)
	if secs > 60 {
		secs = 60
	}
	return time.Duration(secs)*time.Second + time.Duration(rand.Int63n(int64(2*time.Second)))
}

func snippet(body []byte) string {
	if len(body) > 120 {
		body = body[:120]
	}
	return string(body)
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
