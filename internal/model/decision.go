package model

import "time"

// CriterionResult records one criterion's outcome for the audit trail.
type CriterionResult struct {
	Name    string
	Passed  bool
	Skipped bool // optional criterion not enabled for this run
	Detail  string
}

// Decision is the per-ticker screening outcome. Reasons preserves the
// canonical criterion order so audit logs are reproducible across runs.
type Decision struct {
	Symbol    string
	Qualifies bool
	Reasons   []CriterionResult
	Record    *FundamentalsRecord // nil when the fetch failed
	FetchErr  FetchErrorKind      // empty when the fetch succeeded
}

// RunStats is the accounting for one run, surfaced in the summary.
type RunStats struct {
	Processed   int
	Qualified   int
	FetchFailed int
	Duration    time.Duration
	Persisted   bool
	Notified    bool
	NotifyErr   string
}

// RunResult aggregates one invocation. Decisions are in universe order.
type RunResult struct {
	RunTimestamp time.Time
	Decisions    []Decision
	Stats        RunStats
}

// Qualifiers returns the subsequence of Decisions that qualified,
// preserving order.
func (r *RunResult) Qualifiers() []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		if d.Qualifies {
			out = append(out, d)
		}
	}
	return out
}
