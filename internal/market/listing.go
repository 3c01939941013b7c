package market

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/epokrso/steam-analyzer/internal/currency"
	"github.com/epokrso/steam-analyzer/internal/model"
)

// Listing is the market data extracted from one rendered listing page.
// The three sections are independent; any of them may be missing.
type Listing struct {
	ListingsTotal int
	PriceLevels   []model.PriceLevel
	History       []model.SalesHistoryPoint
}

// Empty reports whether the page yielded no market data at all. This
// is a distinguishable outcome from a parse error: an empty page is a
// dead market, a parse error is a broken page.
func (l Listing) Empty() bool {
	return l.ListingsTotal == 0 && len(l.PriceLevels) == 0 && len(l.History) == 0
}

// The sales history series is assigned to a script variable in the
// page; two spellings exist across page revisions.
var historyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)var\s+line1\s*=\s*(\[\[.*?\]\])\s*;`),
	regexp.MustCompile(`(?s)line1\s*=\s*(\[\[.*?\]\])\s*;`),
}

// Timestamp layout used inside history rows, e.g. "Aug 01 2025 01: +0".
const historyTimeLayout = "Jan 02 2006 15"

// ExtractListing parses a rendered listing page. Each section degrades
// independently: depth rows that fail price parsing are skipped, a
// missing history array leaves History nil, and so on. The error is
// non-nil only when the document itself cannot be read.
func ExtractListing(html string) (Listing, error) {
	var listing Listing

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return listing, err
	}

	listing.ListingsTotal = extractListingsTotal(doc)
	listing.PriceLevels = extractPriceLevels(doc)
	listing.History = extractHistory(html)

	return listing, nil
}

// extractListingsTotal reads the textual "N for sale" counter near the
// forsale anchor element.
func extractListingsTotal(doc *goquery.Document) int {
	anchor := doc.Find("#market_commodity_forsale")
	if anchor.Length() == 0 {
		return 0
	}
	span := anchor.Find("span").First()
	if span.Length() == 0 {
		// Some revisions put the count directly in the anchor text.
		return currency.FirstInt(anchor.Text())
	}
	return currency.FirstInt(span.Text())
}

// extractPriceLevels walks the depth table rows. Rows whose price cell
// does not parse are skipped rather than failing the extraction.
func extractPriceLevels(doc *goquery.Document) []model.PriceLevel {
	var levels []model.PriceLevel
	doc.Find("#market_commodity_forsale_table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		priceCents, ok := currency.ParseCents(strings.TrimSpace(cells.Eq(0).Text()))
		if !ok {
			return
		}
		qty := currency.FirstInt(cells.Eq(1).Text())
		levels = append(levels, model.PriceLevel{PriceCents: priceCents, Quantity: qty})
	})
	return levels
}

func extractHistory(html string) []model.SalesHistoryPoint {
	var raw string
	for _, pattern := range historyPatterns {
		if m := pattern.FindStringSubmatch(html); m != nil {
			raw = m[1]
			break
		}
	}
	if raw == "" {
		return nil
	}

	// Rows are [dateText, price, volume]; price arrives as a number,
	// volume as a string or number depending on page revision.
	var rows [][]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil
	}

	points := make([]model.SalesHistoryPoint, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		point := model.SalesHistoryPoint{
			Timestamp:  parseHistoryTime(row[0]),
			PriceCents: parseHistoryPrice(row[1]),
			Volume:     parseHistoryVolume(row[2]),
		}
		points = append(points, point)
	}
	if len(points) == 0 {
		return nil
	}
	return points
}

func parseHistoryTime(raw json.RawMessage) int64 {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse(historyTimeLayout, strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return t.Unix()
}

func parseHistoryPrice(raw json.RawMessage) int64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int64(f*100 + 0.5)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if cents, ok := currency.ParseCents(s); ok {
			return cents
		}
	}
	return 0
}

func parseHistoryVolume(raw json.RawMessage) int {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return currency.FirstInt(s)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	return 0
}
