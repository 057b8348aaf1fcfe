package model

import "time"

// FundamentalsRecord is a per-ticker snapshot of the metrics needed for
// criteria evaluation. The fetcher either fills every required field or
// returns a FetchError; a partially populated record never leaves it.
type FundamentalsRecord struct {
	Symbol            string
	Industry          string
	MarketCap         *float64 // nil when the provider doesn't report one
	TotalDebt         float64
	TotalEquity       float64
	BookValuePerShare float64
	NetMargin         float64
	CurrentPrice      float64
	ThreeYearLow      float64
	IsOTC             bool
	FetchedAt         time.Time
}

// DebtToEquity returns totalDebt / totalEquity. The ratio is undefined
// when equity is zero or negative; ok is false in that case.
func (r *FundamentalsRecord) DebtToEquity() (ratio float64, ok bool) {
	if r.TotalEquity <= 0 {
		return 0, false
	}
	return r.TotalDebt / r.TotalEquity, true
}

// PriceToBook returns currentPrice / bookValuePerShare, undefined when
// book value per share is not positive.
func (r *FundamentalsRecord) PriceToBook() (ratio float64, ok bool) {
	if r.BookValuePerShare <= 0 {
		return 0, false
	}
	return r.CurrentPrice / r.BookValuePerShare, true
}

// PctAboveThreeYearLow returns (currentPrice - threeYearLow) / threeYearLow,
// undefined when the low is not positive.
func (r *FundamentalsRecord) PctAboveThreeYearLow() (ratio float64, ok bool) {
	if r.ThreeYearLow <= 0 {
		return 0, false
	}
	return (r.CurrentPrice - r.ThreeYearLow) / r.ThreeYearLow, true
}
