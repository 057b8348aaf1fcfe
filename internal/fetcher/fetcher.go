package fetcher

import (
	"context"

	"ValueSentinel/internal/model"
)

// Fetcher retrieves a complete fundamentals snapshot for one ticker, or a
// classified *model.FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (*model.FundamentalsRecord, error)
	Name() string
}
