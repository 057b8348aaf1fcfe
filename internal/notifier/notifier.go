package notifier

import (
	"context"
	"time"

	"ValueSentinel/internal/model"
)

// Payload is what the screening core hands to the notification boundary:
// the run timestamp, the qualifying decisions and the run accounting.
type Payload struct {
	RunTimestamp time.Time
	Qualifiers   []model.Decision
	Stats        model.RunStats
}

// Notifier dispatches a finished run's qualifiers. Implementations own all
// transport and authentication concerns; the core only builds the Payload.
type Notifier interface {
	Notify(ctx context.Context, p *Payload) error
}

// NoopNotifier is used when notification is not configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, *Payload) error { return nil }

// TestPayload returns the fixed synthetic payload used to validate
// notifier connectivity without running the pipeline.
func TestPayload() *Payload {
	now := time.Now()
	mk := func(sym string, price float64) model.Decision {
		return model.Decision{
			Symbol:    sym,
			Qualifies: true,
			Record: &model.FundamentalsRecord{
				Symbol:       sym,
				CurrentPrice: price,
				FetchedAt:    now,
			},
		}
	}
	return &Payload{
		RunTimestamp: now,
		Qualifiers:   []model.Decision{mk("AAPL", 190), mk("MSFT", 410), mk("GOOGL", 170)},
		Stats:        model.RunStats{Processed: 3, Qualified: 3, Persisted: true},
	}
}
