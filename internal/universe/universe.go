package universe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// ErrNoUniverse means no ticker list is available at all, neither on disk
// nor from a refresh source. A run cannot proceed without one.
var ErrNoUniverse = errors.New("no ticker universe available")

var symbolRe = regexp.MustCompile(`[A-Za-z0-9]`)

// Source supplies the ordered, deduplicated universe of candidate symbols.
// It is backed by a plain text file (one symbol per line) that can be
// refreshed from remote symbol directories.
type Source struct {
	File        string
	RefreshURLs []string
	client      *resty.Client
}

// NewSource creates a Source backed by the given file.
func NewSource(file string, refreshURLs []string) *Source {
	return &Source{
		File:        file,
		RefreshURLs: refreshURLs,
		client: resty.New().
			SetTimeout(60 * time.Second).
			SetHeader("User-Agent", "Mozilla/5.0"),
	}
}

// Load reads the symbol list from the backing file.
func (s *Source) Load() ([]string, error) {
	data, err := os.ReadFile(s.File)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoUniverse
		}
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	symbols := clean(strings.Split(string(data), "\n"))
	if len(symbols) == 0 {
		return nil, ErrNoUniverse
	}
	return symbols, nil
}

// Refresh downloads the symbol directories, merges them into a sorted
// deduplicated list and persists it as the backing file.
func (s *Source) Refresh(ctx context.Context) ([]string, error) {
	if len(s.RefreshURLs) == 0 {
		return nil, fmt.Errorf("no refresh URLs configured")
	}

	var raw []string
	for _, u := range s.RefreshURLs {
		resp, err := s.client.R().SetContext(ctx).Get(u)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", u, err)
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("download %s: status %d", u, resp.StatusCode())
		}
		raw = append(raw, strings.Split(resp.String(), "\n")...)
	}

	symbols := clean(raw)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("refresh produced an empty universe")
	}

	if err := os.WriteFile(s.File, []byte(strings.Join(symbols, "\n")+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("write universe file: %w", err)
	}
	log.Info().Int("symbols", len(symbols)).Str("file", s.File).Msg("universe refreshed")
	return symbols, nil
}

// Resolve returns the universe for a run. When refresh is requested and
// fails, it falls back to the last known-good file with a warning; it only
// fails when no list exists anywhere.
func (s *Source) Resolve(ctx context.Context, refresh bool) ([]string, error) {
	if refresh {
		symbols, err := s.Refresh(ctx)
		if err == nil {
			return symbols, nil
		}
		log.Warn().Err(err).Msg("universe refresh failed, falling back to last known-good list")
	}
	return s.Load()
}

// clean validates, normalizes, deduplicates and sorts raw symbol lines.
// Pipe-delimited directory rows (e.g. nasdaqtraded.txt) contribute their
// first column; header and footer rows are dropped.
func clean(lines []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range lines {
		sym := line
		if i := strings.IndexByte(sym, '|'); i >= 0 {
			sym = sym[:i]
		}
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || sym == "SYMBOL" || strings.HasPrefix(sym, "FILE CREATION") {
			continue
		}
		if !symbolRe.MatchString(sym) {
			continue
		}
		if !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}
