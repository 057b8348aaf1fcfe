package model

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies a failed fundamentals fetch.
type FetchErrorKind string

const (
	FetchNotFound    FetchErrorKind = "NOT_FOUND"
	FetchRateLimited FetchErrorKind = "RATE_LIMITED"
	FetchTimeout     FetchErrorKind = "TIMEOUT"
	FetchMalformed   FetchErrorKind = "MALFORMED_DATA"
	FetchUnknown     FetchErrorKind = "UNKNOWN"
)

// FetchError is the terminal outcome of a failed fetch for one ticker.
// Failures are isolated per ticker and never abort the run.
type FetchError struct {
	Symbol string
	Kind   FetchErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Symbol, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Symbol, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient and worth another
// attempt. NotFound and MalformedData are terminal for the ticker.
func (e *FetchError) Retryable() bool {
	return e.Kind == FetchRateLimited || e.Kind == FetchTimeout
}

// FetchKindOf extracts the FetchErrorKind from an error chain,
// defaulting to FetchUnknown.
func FetchKindOf(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return FetchUnknown
}
