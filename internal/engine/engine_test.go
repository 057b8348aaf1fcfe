package engine

import (
	"reflect"
	"testing"

	"ValueSentinel/internal/model"
)

// passingRecord builds a record that passes every mandatory criterion:
// p/b = 1.19, d/e = 0.35, margin 2%, 30% above the three-year low, $11.90
// on a listed venue in a non-excluded industry.
func passingRecord() *model.FundamentalsRecord {
	cap := 120e6
	return &model.FundamentalsRecord{
		Symbol:            "ACME",
		Industry:          "Industrials",
		MarketCap:         &cap,
		TotalDebt:         35e6,
		TotalEquity:       100e6,
		BookValuePerShare: 10,
		NetMargin:         0.02,
		CurrentPrice:      11.9,
		ThreeYearLow:      11.9 / 1.3,
	}
}

func TestEvaluate_FullPass(t *testing.T) {
	d := Evaluate(passingRecord(), DefaultCriteria())
	if !d.Qualifies {
		t.Fatalf("expected record to qualify, reasons: %+v", d.Reasons)
	}
	if len(d.Reasons) != 8 {
		t.Fatalf("expected 8 recorded criteria, got %d", len(d.Reasons))
	}
}

func TestEvaluate_CanonicalOrder(t *testing.T) {
	want := []string{
		CriterionIndustry, CriterionVenue, CriterionPrice, CriterionMarketCap,
		CriterionDebtToEquity, CriterionPriceToBook, CriterionNetMargin, CriterionAbove3yLow,
	}
	d := Evaluate(passingRecord(), DefaultCriteria())
	for i, r := range d.Reasons {
		if r.Name != want[i] {
			t.Errorf("reason %d: expected %q, got %q", i, want[i], r.Name)
		}
	}
}

func TestEvaluate_PriceToBookStrictThreshold(t *testing.T) {
	rec := passingRecord()
	rec.CurrentPrice = 12 // p/b exactly 1.2
	rec.ThreeYearLow = 12 / 1.3
	d := Evaluate(rec, DefaultCriteria())
	if d.Qualifies {
		t.Error("p/b of exactly 1.2 must fail the strict < threshold")
	}

	rec.CurrentPrice = 11.9 // p/b 1.19
	rec.ThreeYearLow = 11.9 / 1.3
	if d := Evaluate(rec, DefaultCriteria()); !d.Qualifies {
		t.Errorf("p/b 1.19 should qualify, reasons: %+v", d.Reasons)
	}
}

func TestEvaluate_PennyStockExclusion(t *testing.T) {
	rec := passingRecord()
	rec.CurrentPrice = 4.99
	rec.BookValuePerShare = 5 // keep p/b below threshold
	rec.ThreeYearLow = 4.99 / 1.1
	d := Evaluate(rec, DefaultCriteria())
	if d.Qualifies {
		t.Error("price of $4.99 must never qualify")
	}
}

func TestEvaluate_DebtToEquity(t *testing.T) {
	tests := []struct {
		name      string
		debt      float64
		equity    float64
		qualifies bool
	}{
		{"below threshold", 39e6, 100e6, true},
		{"at threshold", 40e6, 100e6, false},
		{"above threshold", 80e6, 100e6, false},
		{"zero equity undefined", 10e6, 0, false},
		{"negative equity undefined", 10e6, -5e6, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := passingRecord()
			rec.TotalDebt = tt.debt
			rec.TotalEquity = tt.equity
			if d := Evaluate(rec, DefaultCriteria()); d.Qualifies != tt.qualifies {
				t.Errorf("d/e %v/%v: qualifies=%v, want %v", tt.debt, tt.equity, d.Qualifies, tt.qualifies)
			}
		})
	}
}

func TestEvaluate_MarketCapToggle(t *testing.T) {
	small := 10e6
	rec := passingRecord()
	rec.MarketCap = &small

	c := DefaultCriteria()
	if d := Evaluate(rec, c); !d.Qualifies {
		t.Error("market-cap filter disabled: a small cap should still qualify")
	}

	c.MarketCapFilter = true
	if d := Evaluate(rec, c); d.Qualifies {
		t.Error("market-cap filter enabled: cap below 50M must fail")
	}

	rec.MarketCap = nil
	if d := Evaluate(rec, c); d.Qualifies {
		t.Error("market-cap filter enabled: missing cap must fail the criterion")
	}
	if d := Evaluate(rec, DefaultCriteria()); !d.Qualifies {
		t.Error("market-cap filter disabled: missing cap is irrelevant")
	}
}

func TestEvaluate_IndustryAndVenue(t *testing.T) {
	tests := []struct {
		name      string
		industry  string
		otc       bool
		qualifies bool
	}{
		{"industrials listed", "Industrials", false, true},
		{"financial excluded", "Financial Data & Stock Exchanges", false, false},
		{"real estate excluded", "Real Estate Services", false, false},
		{"reit excluded", "REIT - Diversified Real Estate", false, false},
		{"otc excluded", "Industrials", true, false},
		{"unknown industry passes", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := passingRecord()
			rec.Industry = tt.industry
			rec.IsOTC = tt.otc
			if d := Evaluate(rec, DefaultCriteria()); d.Qualifies != tt.qualifies {
				t.Errorf("qualifies=%v, want %v", d.Qualifies, tt.qualifies)
			}
		})
	}
}

func TestEvaluate_NetMarginAndLow(t *testing.T) {
	rec := passingRecord()
	rec.NetMargin = 0
	if d := Evaluate(rec, DefaultCriteria()); d.Qualifies {
		t.Error("zero net margin must fail the strict > threshold")
	}

	rec = passingRecord()
	rec.ThreeYearLow = rec.CurrentPrice / 1.4 // 40% above the low
	if d := Evaluate(rec, DefaultCriteria()); d.Qualifies {
		t.Error("40% above the three-year low must fail")
	}

	rec = passingRecord()
	rec.CurrentPrice = 13.5 // exactly 35% above a low of 10
	rec.BookValuePerShare = 12
	rec.ThreeYearLow = 10
	if d := Evaluate(rec, DefaultCriteria()); !d.Qualifies {
		t.Error("exactly 35% above the low is within the inclusive bound")
	}
}

func TestEvaluate_RecordsAllCriteriaOnEarlyExclusion(t *testing.T) {
	rec := passingRecord()
	rec.Industry = "Real Estate Services"
	d := Evaluate(rec, DefaultCriteria())
	if d.Qualifies {
		t.Fatal("excluded industry must not qualify")
	}
	if len(d.Reasons) != 8 {
		t.Fatalf("all criteria must be recorded even after exclusion, got %d", len(d.Reasons))
	}
	for _, r := range d.Reasons[1:] {
		if r.Name != CriterionMarketCap && !r.Passed {
			t.Errorf("criterion %s should still have been evaluated and passed", r.Name)
		}
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	rec := passingRecord()
	c := DefaultCriteria()
	first := Evaluate(rec, c)
	second := Evaluate(rec, c)
	if !reflect.DeepEqual(first, second) {
		t.Error("evaluation must be deterministic for the same record")
	}
}

func TestFailedFetch(t *testing.T) {
	d := FailedFetch("XYZ", model.FetchRateLimited)
	if d.Qualifies {
		t.Error("a fetch-failed ticker must not qualify")
	}
	if d.FetchErr != model.FetchRateLimited {
		t.Errorf("expected RATE_LIMITED, got %s", d.FetchErr)
	}
	if d.Record != nil || len(d.Reasons) != 0 {
		t.Error("a fetch-failed decision carries no record and no criteria")
	}
}
