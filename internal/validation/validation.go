package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"securityprices/internal/provider"
)

var (
	ErrInvalidSymbol = errors.New("invalid ticker symbol")
	ErrInvalidQuote  = errors.New("invalid quote")
	ErrInvertedRange = errors.New("inverted 52-week range")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Symbol accepts non-empty uppercase ASCII letters only.
func Symbol(s string) error {
	if err := validate.Var(s, "required,alpha,uppercase"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
	return nil
}

// Batches checks every symbol of every batch. Empty batches are allowed.
func Batches(batches [][]string) error {
	for i, batch := range batches {
		for _, s := range batch {
			if err := Symbol(s); err != nil {
				return fmt.Errorf("batch %d: %w", i+1, err)
			}
		}
	}
	return nil
}

// Quote validates the struct tags on provider.Quote.
func Quote(q provider.Quote) error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidQuote, q.Symbol, err)
	}
	return nil
}

// Range reports a 52-week low above the high. Callers log it; the quote is
// still written as published.
func Range(q provider.Quote) error {
	if q.YearLow > q.YearHigh {
		return fmt.Errorf("%w %s: low %v above high %v", ErrInvertedRange, q.Symbol, q.YearLow, q.YearHigh)
	}
	return nil
}
