// Package poller runs the polling loop: one serialized pass over the
// catalog per cycle, followed by a value history sample and a state
// save.
package poller

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/epokrso/steam-analyzer/config"
	"github.com/epokrso/steam-analyzer/internal/control"
	"github.com/epokrso/steam-analyzer/internal/inventory"
	"github.com/epokrso/steam-analyzer/internal/market"
	"github.com/epokrso/steam-analyzer/internal/model"
	"github.com/epokrso/steam-analyzer/internal/state"
	"github.com/epokrso/steam-analyzer/logger"
)

// SnapshotSource fetches the current inventory snapshot for one
// catalog entry.
type SnapshotSource interface {
	Fetch(ctx context.Context, entry config.CatalogEntry) (*inventory.Snapshot, error)
}

// PriceSource looks up current unit prices. The boolean is false when
// the market has no price, which is not an error.
type PriceSource interface {
	PriceOverview(ctx context.Context, appID int, itemKey string) (int64, bool, error)
}

// ItemAnalyzer produces a sell/hold recommendation for one item.
type ItemAnalyzer interface {
	AnalyzeItem(ctx context.Context, appID int, itemKey string) model.AnalysisResult
}

// Poller drives the whole pipeline. There is exactly one poller per
// process and it runs its cycles sequentially; all marketplace
// pacing assumes this.
type Poller struct {
	catalog  []config.CatalogEntry
	interval time.Duration
	source   SnapshotSource
	prices   PriceSource
	analyzer ItemAnalyzer
	store    *state.Store
	signals  *control.Signals
	log      *logger.Entry

	// Injection points for tests.
	now   func() int64
	newID func() string
}

func New(cfg config.Config, source SnapshotSource, prices PriceSource, analyzer ItemAnalyzer, store *state.Store, signals *control.Signals) *Poller {
	return &Poller{
		catalog:  cfg.Catalog,
		interval: cfg.Poll.Interval,
		source:   source,
		prices:   prices,
		analyzer: analyzer,
		store:    store,
		signals:  signals,
		log:      logger.GetLogger().WithComponent("poller"),
		now:      func() int64 { return time.Now().Unix() },
		newID:    func() string { return uuid.NewString() },
	}
}

// Run executes cycles until a stop or update is requested. The sleep
// between cycles is interruptible, so a request raised mid-wait is
// honored within one polling tick.
func (p *Poller) Run(ctx context.Context) {
	for {
		if p.signals.Interrupted() || ctx.Err() != nil {
			return
		}
		p.Cycle(ctx)
		if p.signals.Interrupted() || ctx.Err() != nil {
			return
		}
		if !p.signals.Sleep(p.interval) {
			return
		}
	}
}

// Cycle processes every catalog entry once, appends one portfolio
// value sample and saves the state. A failing entry is logged and
// skipped; it never takes the cycle down with it.
func (p *Poller) Cycle(ctx context.Context) {
	start := time.Now()
	for _, entry := range p.catalog {
		if p.signals.Interrupted() || ctx.Err() != nil {
			break
		}
		if err := p.processEntry(ctx, entry); err != nil {
			p.log.WithFields(logger.Fields{
				"app_id": entry.AppID,
				"game":   entry.Name,
			}).WithError(err).Error("catalog entry failed this cycle")
		}
	}

	p.store.AppendValueHistory(model.ValueHistoryPoint{
		Timestamp:  p.now(),
		TotalCents: p.store.TotalInventoryCents(),
	})

	if err := p.store.Save(); err != nil {
		p.log.WithError(err).Error("state save failed")
	}

	p.log.WithFields(logger.Fields{
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("cycle complete")
}

func (p *Poller) processEntry(ctx context.Context, entry config.CatalogEntry) error {
	snap, err := p.source.Fetch(ctx, entry)
	if err != nil {
		return err
	}

	game := p.store.Game(entry.ID())
	previous := make(map[string]struct{}, len(game.KnownAssetIDs))
	for _, id := range game.KnownAssetIDs {
		previous[id] = struct{}{}
	}

	added, removed := inventory.Diff(previous, snap)
	log := p.log.WithFields(logger.Fields{
		"app_id":  entry.AppID,
		"game":    entry.Name,
		"assets":  len(snap.Assets),
		"added":   len(added),
		"removed": len(removed),
	})
	log.Info("snapshot diffed")

	for _, id := range removed {
		p.log.WithFields(logger.Fields{
			"app_id":   entry.AppID,
			"asset_id": id,
		}).Debug("asset left the inventory")
	}

	// Price the new assets, cache first. The value ledger only ever
	// grows; removals were intentionally not subtracted above.
	// Interruption mid-pricing commits only the assets already
	// handled, so every asset gets exactly one event across runs.
	priceUpdates := make(map[string]int64)
	processed := make(map[string]struct{}, len(added))
	interrupted := false
	var addedValue int64
	for _, id := range added {
		if p.signals.Interrupted() || ctx.Err() != nil {
			interrupted = true
			break
		}
		meta := snap.Assets[id]

		unitPrice, cached := game.PriceCache[meta.ItemKey]
		if !cached {
			unitPrice, cached = priceUpdates[meta.ItemKey]
		}
		if !cached {
			price, err := p.lookupPrice(ctx, entry.AppID, meta.ItemKey)
			if err != nil {
				return err
			}
			if p.signals.Interrupted() || ctx.Err() != nil {
				interrupted = true
				break
			}
			unitPrice = price
			priceUpdates[meta.ItemKey] = price
		}

		addCents := unitPrice * int64(meta.Amount)
		addedValue += addCents
		processed[id] = struct{}{}
		p.store.AppendEvent(model.Event{
			ID:              p.newID(),
			Timestamp:       p.now(),
			CatalogID:       entry.ID(),
			Game:            entry.Name,
			ItemKey:         meta.ItemKey,
			Amount:          meta.Amount,
			UnitPriceCents:  unitPrice,
			AddedValueCents: addCents,
		})
	}

	counts := snap.ItemCounts()

	// Every counted item needs a cache entry before the inventory
	// total is recomputed, whether or not its assets are new. A failed
	// lookup caches zero and is never retried within this state file.
	countKeys := make([]string, 0, len(counts))
	for key := range counts {
		countKeys = append(countKeys, key)
	}
	sort.Strings(countKeys)
	for _, key := range countKeys {
		if p.signals.Interrupted() || ctx.Err() != nil {
			break
		}
		if _, ok := game.PriceCache[key]; ok {
			continue
		}
		if _, ok := priceUpdates[key]; ok {
			continue
		}
		price, err := p.lookupPrice(ctx, entry.AppID, key)
		if err != nil {
			return err
		}
		if p.signals.Interrupted() || ctx.Err() != nil {
			break
		}
		priceUpdates[key] = price
	}

	var knownIDs []string
	if interrupted {
		// Unprocessed additions stay unknown so the next run still
		// detects them; stale removals clean up then too.
		knownIDs = make([]string, 0, len(previous)+len(processed))
		for id := range previous {
			knownIDs = append(knownIDs, id)
		}
		for id := range processed {
			knownIDs = append(knownIDs, id)
		}
	} else {
		knownIDs = make([]string, 0, len(snap.Assets))
		for id := range snap.Assets {
			knownIDs = append(knownIDs, id)
		}
	}
	sort.Strings(knownIDs)

	p.store.Update(entry.ID(), func(g *model.GameState) {
		g.KnownAssetIDs = knownIDs
		g.TotalValueCents += addedValue
		for key, price := range priceUpdates {
			g.PriceCache[key] = price
		}
		g.ItemCounts = counts

		// Recomputed fresh each cycle, unlike the additive ledger.
		var inventoryTotal int64
		for key, count := range counts {
			inventoryTotal += g.PriceCache[key] * int64(count)
		}
		g.InventoryTotalCents = inventoryTotal
	})

	p.analyzeEntry(ctx, entry, counts)
	return nil
}

// lookupPrice resolves one item's unit price. An unpriced item yields
// zero; only an invalid session surfaces as an error.
func (p *Poller) lookupPrice(ctx context.Context, appID int, itemKey string) (int64, error) {
	price, ok, err := p.prices.PriceOverview(ctx, appID, itemKey)
	if err != nil {
		if errors.Is(err, market.ErrInvalidSession) {
			return 0, err
		}
		p.log.WithFields(logger.Fields{
			"app_id": appID,
			"item":   itemKey,
		}).WithError(err).Warn("price lookup failed")
		return 0, nil
	}
	if !ok {
		return 0, nil
	}
	return price, nil
}

// analyzeEntry runs the market analysis for items that have none yet.
// Results are cached per item key for the life of the state file, so
// each item pays the listing page cost once.
func (p *Poller) analyzeEntry(ctx context.Context, entry config.CatalogEntry, counts map[string]int) {
	if p.analyzer == nil {
		return
	}

	game := p.store.Game(entry.ID())
	keys := make([]string, 0, len(counts))
	for key := range counts {
		if _, done := game.MarketAnalysis[key]; !done {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		var result model.AnalysisResult
		switch {
		case p.signals.Interrupted() || ctx.Err() != nil:
			result = model.AnalysisResult{
				Status:   model.StatusSkipped,
				Reason:   model.ReasonInterrupted,
				Decision: model.DecisionHold,
			}
		case game.PriceCache[key] <= 0:
			// No point pulling a listing page for an item the market
			// would not price.
			result = model.AnalysisResult{
				Status:   model.StatusSkipped,
				Reason:   model.ReasonPriceZero,
				Decision: model.DecisionHold,
			}
		default:
			result = p.analyzer.AnalyzeItem(ctx, entry.AppID, key)
		}

		itemKey := key
		p.store.Update(entry.ID(), func(g *model.GameState) {
			g.MarketAnalysis[itemKey] = result
		})
	}
}
