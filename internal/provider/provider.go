package provider

import (
	"context"
	"errors"
)

var (
	// ErrLengthMismatch reports a batch whose extracted field sequences
	// differ in length. Callers decide whether to skip the batch or abort.
	ErrLengthMismatch = errors.New("extracted field counts differ")
	// ErrMissingSymbol reports a requested symbol absent from the response.
	ErrMissingSymbol = errors.New("symbol missing from response")
)

// Quote is one security's extracted quote, keyed by its ticker symbol.
// Created once per symbol per batch and written once to the artifact.
type Quote struct {
	Symbol   string  `json:"symbol" validate:"required,alpha,uppercase"`
	Last     float64 `json:"last" validate:"gte=0"`
	YearHigh float64 `json:"year_high" validate:"gte=0"`
	YearLow  float64 `json:"year_low" validate:"gte=0"`
}

// Provider returns one quote per requested symbol, in request order.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbols []string) ([]Quote, error)
}
