package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ValueSentinel/internal/engine"
	"ValueSentinel/internal/fetcher"
	"ValueSentinel/internal/model"
	"ValueSentinel/internal/notifier"
	"ValueSentinel/internal/store"
	"ValueSentinel/internal/universe"
)

func passingRecord(symbol string) *model.FundamentalsRecord {
	cap := 120e6
	return &model.FundamentalsRecord{
		Symbol:            symbol,
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

func testRunner(t *testing.T, symbols []string, mock *fetcher.MockFetcher) *Runner {
	t.Helper()
	dir := t.TempDir()

	uniFile := filepath.Join(dir, "us_stocks.txt")
	if err := os.WriteFile(uniFile, []byte(strings.Join(symbols, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	st, err := store.NewStore(filepath.Join(dir, "results"), filepath.Join(dir, "audit.txt"), 7)
	if err != nil {
		t.Fatal(err)
	}

	return &Runner{
		Universe: universe.NewSource(uniFile, nil),
		Fetcher:  mock,
		Criteria: engine.DefaultCriteria(),
		Store:    st,
		Notifier: notifier.NoopNotifier{},
		Workers:  3,
		LockFile: filepath.Join(dir, "run.lock"),
	}
}

func TestRun_IsolationOrderingAndStats(t *testing.T) {
	mock := fetcher.NewMockFetcher()
	mock.Records["AAA"] = passingRecord("AAA")
	mock.Errs["BBB"] = &model.FetchError{Symbol: "BBB", Kind: model.FetchNotFound}
	ccc := passingRecord("CCC")
	ccc.NetMargin = -0.1
	mock.Records["CCC"] = ccc

	r := testRunner(t, []string{"AAA", "BBB", "CCC"}, mock)
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// one NotFound must not prevent the other tickers from being screened
	if res.Stats.Processed != 3 || res.Stats.Qualified != 1 || res.Stats.FetchFailed != 1 {
		t.Errorf("stats = %+v, want processed=3 qualified=1 fetch_failed=1", res.Stats)
	}
	if !res.Stats.Persisted {
		t.Error("run should report persistence success")
	}

	// decisions re-sequenced into universe order despite concurrent fetches
	for i, want := range []string{"AAA", "BBB", "CCC"} {
		if res.Decisions[i].Symbol != want {
			t.Errorf("decision %d: got %s, want %s", i, res.Decisions[i].Symbol, want)
		}
	}
	if res.Decisions[1].FetchErr != model.FetchNotFound {
		t.Errorf("BBB should carry NOT_FOUND, got %q", res.Decisions[1].FetchErr)
	}

	// audit log has one line per ticker in universe order
	data, err := os.ReadFile(r.Store.AuditPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 audit lines, got %d", len(lines))
	}
	for i, want := range []string{"AAA", "BBB", "CCC"} {
		if !strings.Contains(lines[i], " "+want+" ") {
			t.Errorf("audit line %d should be %s: %q", i, want, lines[i])
		}
	}

	// qualifier file contains only the qualifier
	names, err := r.Store.QualifierFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 {
		t.Fatalf("expected one qualifier file, got %d", len(names))
	}
	content, err := os.ReadFile(filepath.Join(r.Store.Dir, names[0]))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "AAA") || strings.Contains(string(content), "CCC") {
		t.Errorf("qualifier file should list AAA only: %s", content)
	}
}

func TestRun_LockPreventsConcurrentRuns(t *testing.T) {
	mock := fetcher.NewMockFetcher()
	mock.Records["AAA"] = passingRecord("AAA")
	r := testRunner(t, []string{"AAA"}, mock)

	held, err := store.AcquireLock(r.LockFile, false)
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	if _, err := r.Run(context.Background()); !errors.Is(err, store.ErrLocked) {
		t.Fatalf("expected ErrLocked while another run holds the lock, got %v", err)
	}
}

func TestRun_CancelledRunPersistsNothing(t *testing.T) {
	mock := fetcher.NewMockFetcher()
	mock.Records["AAA"] = passingRecord("AAA")
	r := testRunner(t, []string{"AAA", "BBB"}, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(r.Store.AuditPath); !os.IsNotExist(err) {
		t.Error("a cancelled run must not append to the audit log")
	}
	names, err := r.Store.QualifierFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Error("a cancelled run must not write a qualifier file")
	}
}

func TestRun_NoUniverseIsFatal(t *testing.T) {
	mock := fetcher.NewMockFetcher()
	r := testRunner(t, []string{"AAA"}, mock)
	r.Universe = universe.NewSource(filepath.Join(t.TempDir(), "missing.txt"), nil)

	if _, err := r.Run(context.Background()); !errors.Is(err, universe.ErrNoUniverse) {
		t.Fatalf("expected ErrNoUniverse, got %v", err)
	}
}

// failingNotifier always errors.
type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, *notifier.Payload) error {
	return errors.New("smtp down")
}

func TestRun_NotificationFailureDoesNotFailRun(t *testing.T) {
	mock := fetcher.NewMockFetcher()
	mock.Records["AAA"] = passingRecord("AAA")
	r := testRunner(t, []string{"AAA"}, mock)
	r.Notifier = failingNotifier{}

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("a notification failure must not fail the run: %v", err)
	}
	if res.Stats.Notified {
		t.Error("stats should not claim notification success")
	}
	if res.Stats.NotifyErr == "" {
		t.Error("notification failure should be reported separately in the stats")
	}
	if !res.Stats.Persisted {
		t.Error("screening and persistence still succeeded")
	}
}
