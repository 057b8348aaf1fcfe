package engine

import (
	"fmt"
	"strings"

	"ValueSentinel/internal/model"
)

// Canonical criterion names, in evaluation order. The audit log depends on
// this order being stable across runs.
const (
	CriterionIndustry     = "industry"
	CriterionVenue        = "venue"
	CriterionPrice        = "price"
	CriterionMarketCap    = "market_cap"
	CriterionDebtToEquity = "debt_to_equity"
	CriterionPriceToBook  = "price_to_book"
	CriterionNetMargin    = "net_margin"
	CriterionAbove3yLow   = "above_3y_low"
)

// Criteria holds the screening thresholds. All criteria are mandatory
// except the market-cap filter, which is a run-time toggle.
type Criteria struct {
	ExcludedIndustries   []string
	MinPrice             float64
	MarketCapFilter      bool
	MinMarketCap         float64
	MaxDebtToEquity      float64
	MaxPriceToBook       float64
	MinNetMargin         float64
	MaxAboveThreeYearLow float64
}

// DefaultCriteria returns the Walter Schloss thresholds with the
// market-cap filter disabled.
func DefaultCriteria() Criteria {
	return Criteria{
		ExcludedIndustries:   []string{"financial", "real estate"},
		MinPrice:             5,
		MarketCapFilter:      false,
		MinMarketCap:         50e6,
		MaxDebtToEquity:      0.4,
		MaxPriceToBook:       1.2,
		MinNetMargin:         0,
		MaxAboveThreeYearLow: 0.35,
	}
}

// checkIndustry excludes industries on the exclusion list (financials and
// real estate/REITs by default). An empty industry passes: the provider
// frequently omits classification for thinly covered names.
func (c Criteria) checkIndustry(rec *model.FundamentalsRecord) model.CriterionResult {
	industry := strings.ToLower(rec.Industry)
	for _, excluded := range c.ExcludedIndustries {
		if excluded != "" && strings.Contains(industry, strings.ToLower(excluded)) {
			return model.CriterionResult{
				Name:   CriterionIndustry,
				Detail: fmt.Sprintf("excluded industry %q", rec.Industry),
			}
		}
	}
	return model.CriterionResult{Name: CriterionIndustry, Passed: true, Detail: rec.Industry}
}

// checkVenue excludes OTC-traded symbols.
func (c Criteria) checkVenue(rec *model.FundamentalsRecord) model.CriterionResult {
	if rec.IsOTC {
		return model.CriterionResult{Name: CriterionVenue, Detail: "OTC venue"}
	}
	return model.CriterionResult{Name: CriterionVenue, Passed: true, Detail: "listed"}
}

// checkPrice excludes penny stocks: current price must exceed MinPrice.
func (c Criteria) checkPrice(rec *model.FundamentalsRecord) model.CriterionResult {
	return model.CriterionResult{
		Name:   CriterionPrice,
		Passed: rec.CurrentPrice > c.MinPrice,
		Detail: fmt.Sprintf("price=%.2f min=%.2f", rec.CurrentPrice, c.MinPrice),
	}
}

// checkMarketCap requires marketCap > MinMarketCap. The criterion is
// optional: when the filter is disabled it is recorded as skipped and does
// not affect qualification. A missing market cap fails the enabled filter.
func (c Criteria) checkMarketCap(rec *model.FundamentalsRecord) model.CriterionResult {
	if !c.MarketCapFilter {
		return model.CriterionResult{Name: CriterionMarketCap, Passed: true, Skipped: true, Detail: "filter disabled"}
	}
	if rec.MarketCap == nil {
		return model.CriterionResult{Name: CriterionMarketCap, Detail: "market cap unavailable"}
	}
	return model.CriterionResult{
		Name:   CriterionMarketCap,
		Passed: *rec.MarketCap > c.MinMarketCap,
		Detail: fmt.Sprintf("cap=%.0f min=%.0f", *rec.MarketCap, c.MinMarketCap),
	}
}

// checkDebtToEquity requires debt/equity below MaxDebtToEquity. The ratio
// is undefined for non-positive equity, which fails the criterion.
func (c Criteria) checkDebtToEquity(rec *model.FundamentalsRecord) model.CriterionResult {
	ratio, ok := rec.DebtToEquity()
	if !ok {
		return model.CriterionResult{Name: CriterionDebtToEquity, Detail: "equity <= 0, ratio undefined"}
	}
	return model.CriterionResult{
		Name:   CriterionDebtToEquity,
		Passed: ratio < c.MaxDebtToEquity,
		Detail: fmt.Sprintf("d/e=%.3f max=%.2f", ratio, c.MaxDebtToEquity),
	}
}

// checkPriceToBook requires price/book strictly below MaxPriceToBook.
func (c Criteria) checkPriceToBook(rec *model.FundamentalsRecord) model.CriterionResult {
	ratio, ok := rec.PriceToBook()
	if !ok {
		return model.CriterionResult{Name: CriterionPriceToBook, Detail: "book value <= 0, ratio undefined"}
	}
	return model.CriterionResult{
		Name:   CriterionPriceToBook,
		Passed: ratio < c.MaxPriceToBook,
		Detail: fmt.Sprintf("p/b=%.3f max=%.2f", ratio, c.MaxPriceToBook),
	}
}

// checkNetMargin requires a strictly positive net margin.
func (c Criteria) checkNetMargin(rec *model.FundamentalsRecord) model.CriterionResult {
	return model.CriterionResult{
		Name:   CriterionNetMargin,
		Passed: rec.NetMargin > c.MinNetMargin,
		Detail: fmt.Sprintf("margin=%.4f min=%.2f", rec.NetMargin, c.MinNetMargin),
	}
}

// checkAboveThreeYearLow requires the price to sit within
// MaxAboveThreeYearLow of the three-year low.
func (c Criteria) checkAboveThreeYearLow(rec *model.FundamentalsRecord) model.CriterionResult {
	pct, ok := rec.PctAboveThreeYearLow()
	if !ok {
		return model.CriterionResult{Name: CriterionAbove3yLow, Detail: "three-year low unavailable"}
	}
	return model.CriterionResult{
		Name:   CriterionAbove3yLow,
		Passed: pct <= c.MaxAboveThreeYearLow,
		Detail: fmt.Sprintf("above_low=%.3f max=%.2f", pct, c.MaxAboveThreeYearLow),
	}
}
