package model

// Decision is the sell/hold recommendation for an item.
type Decision string

const (
	DecisionSell Decision = "sell"
	DecisionHold Decision = "hold"
)

// AnalysisStatus reports whether an item was analyzed or skipped.
type AnalysisStatus string

const (
	StatusOK      AnalysisStatus = "ok"
	StatusSkipped AnalysisStatus = "skipped"
)

// Skip reasons recorded on AnalysisResult.Reason.
const (
	ReasonNoData      = "no_listings_or_no_history"
	ReasonPriceZero   = "price_zero"
	ReasonInterrupted = "interrupted"
)

// PriceLevel is one row of order-book depth, ascending by price as
// returned by the market.
type PriceLevel struct {
	PriceCents int64 `json:"price_cents"`
	Quantity   int   `json:"qty"`
}

// SalesHistoryPoint is one observation of historical sales, chronological.
type SalesHistoryPoint struct {
	Timestamp  int64 `json:"ts"`
	PriceCents int64 `json:"price_cents"`
	Volume     int   `json:"volume"`
}

// AnalysisResult is the market analysis outcome for a single item.
// Turnover is AvgDailySales / ListingsTotal when listings exist, 0
// otherwise. AvgDailySales and Turnover are ratios, not currency, so
// they may be floats.
type AnalysisResult struct {
	Status                AnalysisStatus `json:"status"`
	Reason                string         `json:"reason,omitempty"`
	ListingsTotal         int            `json:"listings_total"`
	AvgDailySales         float64        `json:"avg_daily_sales"`
	Turnover              float64        `json:"turnover"`
	RecommendedPriceCents int64          `json:"recommended_price_cents"`
	Decision              Decision       `json:"decision"`
}

// GameState is the durable per-catalog-entry state. KnownAssetIDs and
// ItemCounts are rewritten each cycle; PriceCache and MarketAnalysis
// only ever grow within a run (bounded by the number of distinct item
// keys ever seen).
//
// TotalValueCents is an additive ledger of value observed when assets
// first appeared; removals never decrement it. InventoryTotalCents is
// recomputed fresh each cycle from current counts and cached prices.
// The two are distinct metrics and must both be persisted.
type GameState struct {
	KnownAssetIDs       []string                  `json:"known_assetids"`
	TotalValueCents     int64                     `json:"total_value_cents"`
	PriceCache          map[string]int64          `json:"price_cache"`
	ItemCounts          map[string]int            `json:"item_counts"`
	InventoryTotalCents int64                     `json:"inventory_total_cents"`
	MarketAnalysis      map[string]AnalysisResult `json:"market_analysis"`
}

// NewGameState returns an empty state with all maps initialized.
func NewGameState() *GameState {
	return &GameState{
		KnownAssetIDs:  []string{},
		PriceCache:     map[string]int64{},
		ItemCounts:     map[string]int{},
		MarketAnalysis: map[string]AnalysisResult{},
	}
}

// Normalize replaces nil maps and slices left by a hand-edited or
// older state file so callers can index without checks.
func (g *GameState) Normalize() {
	if g.KnownAssetIDs == nil {
		g.KnownAssetIDs = []string{}
	}
	if g.PriceCache == nil {
		g.PriceCache = map[string]int64{}
	}
	if g.ItemCounts == nil {
		g.ItemCounts = map[string]int{}
	}
	if g.MarketAnalysis == nil {
		g.MarketAnalysis = map[string]AnalysisResult{}
	}
}

// Clone returns a deep copy safe to read after the original is
// mutated.
func (g *GameState) Clone() GameState {
	out := GameState{
		KnownAssetIDs:       append([]string{}, g.KnownAssetIDs...),
		TotalValueCents:     g.TotalValueCents,
		PriceCache:          make(map[string]int64, len(g.PriceCache)),
		ItemCounts:          make(map[string]int, len(g.ItemCounts)),
		InventoryTotalCents: g.InventoryTotalCents,
		MarketAnalysis:      make(map[string]AnalysisResult, len(g.MarketAnalysis)),
	}
	for k, v := range g.PriceCache {
		out.PriceCache[k] = v
	}
	for k, v := range g.ItemCounts {
		out.ItemCounts[k] = v
	}
	for k, v := range g.MarketAnalysis {
		out.MarketAnalysis[k] = v
	}
	return out
}

// Event records one newly observed asset. AddedValueCents is
// UnitPriceCents * Amount at observation time.
type Event struct {
	ID              string `json:"id"`
	Timestamp       int64  `json:"ts"`
	CatalogID       string `json:"catalog_id"`
	Game            string `json:"game"`
	ItemKey         string `json:"market_hash_name"`
	Amount          int    `json:"amount"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	AddedValueCents int64  `json:"add_cents"`
}

// ValueHistoryPoint is the account-wide inventory value at the end of
// one poll cycle. Appended once per cycle whether or not anything
// changed.
type ValueHistoryPoint struct {
	Timestamp  int64 `json:"ts"`
	TotalCents int64 `json:"total_cents"`
}
