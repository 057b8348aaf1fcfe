package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ValueSentinel/internal/model"
)

// qualifier file names embed the run timestamp: results_20060102_150405.txt
const qualifierTimeLayout = "20060102_150405"

var qualifierNameRe = regexp.MustCompile(`^results_(\d{8}_\d{6})\.txt$`)

// Store persists run artifacts: the cumulative append-only audit log and
// the rotating set of per-run qualifier files.
type Store struct {
	Dir       string // qualifier files live here
	AuditPath string
	KeepRuns  int
}

// NewStore creates a Store and ensures the qualifier directory exists.
func NewStore(dir, auditPath string, keepRuns int) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	if keepRuns < 1 {
		keepRuns = 7
	}
	return &Store{Dir: dir, AuditPath: auditPath, KeepRuns: keepRuns}, nil
}

// AppendAudit appends one line per decision to the cumulative audit log,
// in run order. Prior content is never rewritten; the whole run is written
// with a single append so a crash cannot leave half a run interleaved with
// another writer's lines.
func (s *Store) AppendAudit(runTS time.Time, decisions []model.Decision) error {
	var b strings.Builder
	for i := range decisions {
		b.WriteString(FormatAuditLine(runTS, &decisions[i]))
		b.WriteByte('\n')
	}

	f, err := os.OpenFile(s.AuditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	return nil
}

// WriteQualifiers writes the qualifier file for this run atomically:
// a reader never observes a partial file because the content lands under a
// temporary name and is renamed into place.
func (s *Store) WriteQualifiers(runTS time.Time, qualifiers []model.Decision) error {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Stocks meeting value criteria (run %s):\n", runTS.UTC().Format(time.RFC3339)))
	for i := range qualifiers {
		d := &qualifiers[i]
		b.WriteString(d.Symbol)
		if r := d.Record; r != nil {
			b.WriteString(fmt.Sprintf("  price=%.2f", r.CurrentPrice))
			if pb, ok := r.PriceToBook(); ok {
				b.WriteString(fmt.Sprintf(" p_b=%.3f", pb))
			}
			if de, ok := r.DebtToEquity(); ok {
				b.WriteString(fmt.Sprintf(" d_e=%.3f", de))
			}
		}
		b.WriteByte('\n')
	}

	final := filepath.Join(s.Dir, "results_"+runTS.Format(qualifierTimeLayout)+".txt")
	tmp, err := os.CreateTemp(s.Dir, ".results-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp qualifier file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("write qualifier file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync qualifier file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close qualifier file: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		return fmt.Errorf("commit qualifier file: %w", err)
	}
	return nil
}

// Prune deletes qualifier files beyond the retention window, oldest first
// by the timestamp embedded in the file name. Call it only after the run's
// qualifier file is durably committed. Per-file failures are logged and do
// not fail the run.
func (s *Store) Prune() error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return fmt.Errorf("list results dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && qualifierNameRe.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) <= s.KeepRuns {
		return nil
	}
	// lexicographic order == chronological for the embedded timestamp
	sort.Strings(names)

	for _, name := range names[:len(names)-s.KeepRuns] {
		path := filepath.Join(s.Dir, name)
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("failed to prune stale qualifier file")
			continue
		}
		log.Info().Str("file", path).Msg("pruned old qualifier file")
	}
	return nil
}

// QualifierFiles returns the current qualifier file names, oldest first.
func (s *Store) QualifierFiles() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && qualifierNameRe.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// FormatAuditLine renders one decision as one audit log line with a stable
// field order: timestamp, symbol, outcome, per-criterion results, raw
// metrics, fetch error kind.
func FormatAuditLine(runTS time.Time, d *model.Decision) string {
	var b strings.Builder
	b.WriteString(runTS.UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(d.Symbol)
	b.WriteString(fmt.Sprintf(" qualifies=%t", d.Qualifies))

	if d.FetchErr != "" {
		b.WriteString(" error=")
		b.WriteString(string(d.FetchErr))
		return b.String()
	}

	for _, r := range d.Reasons {
		state := "fail"
		switch {
		case r.Skipped:
			state = "skip"
		case r.Passed:
			state = "pass"
		}
		b.WriteString(fmt.Sprintf(" %s=%s", r.Name, state))
	}

	if r := d.Record; r != nil {
		b.WriteString(fmt.Sprintf(" | price=%.2f", r.CurrentPrice))
		if r.MarketCap != nil {
			b.WriteString(fmt.Sprintf(" mktcap=%.0f", *r.MarketCap))
		} else {
			b.WriteString(" mktcap=n/a")
		}
		if de, ok := r.DebtToEquity(); ok {
			b.WriteString(fmt.Sprintf(" d_e=%.3f", de))
		} else {
			b.WriteString(" d_e=n/a")
		}
		if pb, ok := r.PriceToBook(); ok {
			b.WriteString(fmt.Sprintf(" p_b=%.3f", pb))
		} else {
			b.WriteString(" p_b=n/a")
		}
		b.WriteString(fmt.Sprintf(" margin=%.4f", r.NetMargin))
		if pct, ok := r.PctAboveThreeYearLow(); ok {
			b.WriteString(fmt.Sprintf(" above_low=%.3f", pct))
		} else {
			b.WriteString(" above_low=n/a")
		}
		b.WriteString(fmt.Sprintf(" otc=%t industry=%q", r.IsOTC, r.Industry))
	}
	return b.String()
}
