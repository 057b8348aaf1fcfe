package fetcher

import (
	"context"
	"sync"

	"ValueSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	mu      sync.Mutex
	Records map[string]*model.FundamentalsRecord
	Errs    map[string]error
	Calls   map[string]int
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Records: make(map[string]*model.FundamentalsRecord),
		Errs:    make(map[string]error),
		Calls:   make(map[string]int),
	}
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Fetch(_ context.Context, symbol string) (*model.FundamentalsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[symbol]++
	if err, ok := m.Errs[symbol]; ok {
		return nil, err
	}
	if rec, ok := m.Records[symbol]; ok {
		return rec, nil
	}
	return nil, &model.FetchError{Symbol: symbol, Kind: model.FetchNotFound}
}

// CallCount returns how many times symbol was fetched.
func (m *MockFetcher) CallCount(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[symbol]
}
