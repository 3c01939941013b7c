package market

import (
	"context"

	"github.com/epokrso/steam-analyzer/config"
	"github.com/epokrso/steam-analyzer/internal/model"
	"github.com/epokrso/steam-analyzer/logger"
)

// historyWindow is the number of most recent history points averaged
// into the daily sales estimate.
const historyWindow = 7

// Analyzer derives sell/hold recommendations from listing pages.
type Analyzer struct {
	cfg    config.AnalysisConfig
	client *Client
	log    *logger.Log
}

func NewAnalyzer(cfg config.AnalysisConfig, client *Client) *Analyzer {
	return &Analyzer{
		cfg:    cfg,
		client: client,
		log:    logger.GetLogger(),
	}
}

// AnalyzeItem fetches the item's listing page and evaluates it. A
// rendering or extraction failure degrades to a skipped result; it
// never fails the cycle.
func (a *Analyzer) AnalyzeItem(ctx context.Context, appID int, itemKey string) model.AnalysisResult {
	if a.client.Interrupted() || ctx.Err() != nil {
		return model.AnalysisResult{
			Status:   model.StatusSkipped,
			Reason:   model.ReasonInterrupted,
			Decision: model.DecisionHold,
		}
	}

	html, err := a.client.ListingPage(ctx, appID, itemKey)
	if err != nil {
		a.log.WithComponent("analyzer").WithFields(logger.Fields{
			"app_id": appID,
			"item":   itemKey,
		}).WithError(err).Warn("listing page unavailable")
		return model.AnalysisResult{
			Status:   model.StatusSkipped,
			Reason:   model.ReasonNoData,
			Decision: model.DecisionHold,
		}
	}

	listing, err := ExtractListing(html)
	if err != nil {
		a.log.WithComponent("analyzer").WithFields(logger.Fields{
			"app_id": appID,
			"item":   itemKey,
		}).WithError(err).Warn("listing page extraction failed")
		return model.AnalysisResult{
			Status:   model.StatusSkipped,
			Reason:   model.ReasonNoData,
			Decision: model.DecisionHold,
		}
	}

	return Evaluate(listing, a.cfg)
}

// Evaluate computes the recommendation from extracted listing data.
//
// Total listings is the sum of depth quantities, falling back to the
// page's textual total when depth is absent. The daily sales estimate
// is the mean volume of the last historyWindow points. Turnover is
// sales over listings with a zero guard. The recommended price is the
// first depth row at which cumulative quantity covers a day of sales,
// defaulting to the cheapest row.
func Evaluate(listing Listing, cfg config.AnalysisConfig) model.AnalysisResult {
	totalListings := 0
	for _, level := range listing.PriceLevels {
		totalListings += level.Quantity
	}
	if totalListings <= 0 {
		totalListings = listing.ListingsTotal
	}

	if len(listing.History) == 0 && len(listing.PriceLevels) == 0 && totalListings <= 0 {
		return model.AnalysisResult{
			Status:   model.StatusSkipped,
			Reason:   model.ReasonNoData,
			Decision: model.DecisionHold,
		}
	}

	recent := listing.History
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}
	avgDailySales := 0.0
	if len(recent) > 0 {
		sum := 0
		for _, p := range recent {
			sum += p.Volume
		}
		avgDailySales = float64(sum) / float64(len(recent))
	}

	turnover := 0.0
	if totalListings > 0 {
		turnover = avgDailySales / float64(totalListings)
	}

	var recommended int64
	if len(listing.PriceLevels) > 0 {
		if avgDailySales > 0 {
			cumulative := 0
			for _, level := range listing.PriceLevels {
				cumulative += level.Quantity
				if float64(cumulative) >= avgDailySales {
					recommended = level.PriceCents
					break
				}
			}
		}
		if recommended == 0 {
			recommended = listing.PriceLevels[0].PriceCents
		}
	}

	decision := model.DecisionHold
	if avgDailySales >= cfg.MinDailySales && turnover >= cfg.TurnoverThreshold {
		decision = model.DecisionSell
	}

	return model.AnalysisResult{
		Status:                model.StatusOK,
		ListingsTotal:         totalListings,
		AvgDailySales:         avgDailySales,
		Turnover:              turnover,
		RecommendedPriceCents: recommended,
		Decision:              decision,
	}
}
