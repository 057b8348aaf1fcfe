package engine

import "ValueSentinel/internal/model"

// Evaluate maps a complete fundamentals record to a qualification decision.
// It is pure and deterministic: the same record and criteria always yield
// the same decision. Every criterion is evaluated and recorded in canonical
// order even after an earlier one has already excluded the ticker, so the
// audit trail is complete.
func Evaluate(rec *model.FundamentalsRecord, c Criteria) model.Decision {
	reasons := []model.CriterionResult{
		c.checkIndustry(rec),
		c.checkVenue(rec),
		c.checkPrice(rec),
		c.checkMarketCap(rec),
		c.checkDebtToEquity(rec),
		c.checkPriceToBook(rec),
		c.checkNetMargin(rec),
		c.checkAboveThreeYearLow(rec),
	}

	qualifies := true
	for _, r := range reasons {
		if !r.Skipped && !r.Passed {
			qualifies = false
		}
	}

	return model.Decision{
		Symbol:    rec.Symbol,
		Qualifies: qualifies,
		Reasons:   reasons,
		Record:    rec,
	}
}

// FailedFetch builds the terminal decision for a ticker whose fetch failed.
// No criteria are recorded: the record never existed.
func FailedFetch(symbol string, kind model.FetchErrorKind) model.Decision {
	return model.Decision{
		Symbol:   symbol,
		FetchErr: kind,
	}
}
