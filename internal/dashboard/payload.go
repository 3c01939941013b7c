package dashboard

import (
	"sort"

	"github.com/epokrso/steam-analyzer/internal/model"
	"github.com/epokrso/steam-analyzer/internal/state"
)

const (
	lastEventCount     = 10
	valueHistoryWindow = 2000
	expensiveItemCount = 10
)

// InventoryItem is one item line in the portfolio view, valued at the
// cached unit price.
type InventoryItem struct {
	CatalogID      string `json:"catalog_id"`
	Game           string `json:"game"`
	ItemKey        string `json:"market_hash_name"`
	Count          int    `json:"count"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

// SellCandidate is an item whose market analysis recommends selling.
type SellCandidate struct {
	CatalogID             string  `json:"catalog_id"`
	Game                  string  `json:"game"`
	ItemKey               string  `json:"market_hash_name"`
	Count                 int     `json:"count"`
	RecommendedPriceCents int64   `json:"recommended_price_cents"`
	ListingsTotal         int     `json:"listings_total"`
	AvgDailySales         float64 `json:"avg_daily_sales"`
	Turnover              float64 `json:"turnover"`
}

// Payload is the dashboard's read model: a bounded projection of the
// store, never the raw document.
type Payload struct {
	LastEvents     []model.Event             `json:"last_items"`
	ValueHistory   []model.ValueHistoryPoint `json:"value_history"`
	ExpensiveItems []InventoryItem           `json:"expensive_items"`
	SellCandidates []SellCandidate           `json:"items_to_sell"`
}

// BuildPayload projects the current store contents into the dashboard
// payload. names maps catalog ids to display names.
func BuildPayload(store *state.Store, names map[string]string) Payload {
	events := store.Events()
	if len(events) > lastEventCount {
		events = events[len(events)-lastEventCount:]
	}

	history := store.ValueHistory()
	if len(history) > valueHistoryWindow {
		history = history[len(history)-valueHistoryWindow:]
	}

	var items []InventoryItem
	var sells []SellCandidate
	for catalogID, game := range store.Games() {
		name := names[catalogID]
		if name == "" {
			name = catalogID
		}
		for key, count := range game.ItemCounts {
			unitPrice := game.PriceCache[key]
			items = append(items, InventoryItem{
				CatalogID:      catalogID,
				Game:           name,
				ItemKey:        key,
				Count:          count,
				UnitPriceCents: unitPrice,
				TotalCents:     unitPrice * int64(count),
			})

			analysis, ok := game.MarketAnalysis[key]
			if ok && analysis.Decision == model.DecisionSell {
				sells = append(sells, SellCandidate{
					CatalogID:             catalogID,
					Game:                  name,
					ItemKey:               key,
					Count:                 count,
					RecommendedPriceCents: analysis.RecommendedPriceCents,
					ListingsTotal:         analysis.ListingsTotal,
					AvgDailySales:         analysis.AvgDailySales,
					Turnover:              analysis.Turnover,
				})
			}
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].UnitPriceCents != items[j].UnitPriceCents {
			return items[i].UnitPriceCents > items[j].UnitPriceCents
		}
		return items[i].ItemKey < items[j].ItemKey
	})
	if len(items) > expensiveItemCount {
		items = items[:expensiveItemCount]
	}

	sort.Slice(sells, func(i, j int) bool {
		if sells[i].Turnover != sells[j].Turnover {
			return sells[i].Turnover > sells[j].Turnover
		}
		return sells[i].ItemKey < sells[j].ItemKey
	})

	if events == nil {
		events = []model.Event{}
	}
	if history == nil {
		history = []model.ValueHistoryPoint{}
	}
	if items == nil {
		items = []InventoryItem{}
	}
	if sells == nil {
		sells = []SellCandidate{}
	}
	return Payload{
		LastEvents:     events,
		ValueHistory:   history,
		ExpensiveItems: items,
		SellCandidates: sells,
	}
}
