// Package errors provides the domain error taxonomy shared by the ledger,
// alert engine, performance tracker and optimizer.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity            = errors.New("invalid quantity")
	ErrInvalidPrice               = errors.New("invalid price")
	ErrInvalidTicker              = errors.New("invalid ticker")
	ErrInvalidAlert               = errors.New("invalid alert")
	ErrInsufficientShares         = errors.New("insufficient shares")
	ErrQuoteUnavailable           = errors.New("quote unavailable")
	ErrInsufficientHistory        = errors.New("insufficient price history")
	ErrOptimizationDidNotConverge = errors.New("optimization did not converge")
	ErrPersistence                = errors.New("persistence error")
)

// QuoteError reports a failed price lookup for a single ticker.
type QuoteError struct {
	Ticker string
	Err    error
}

func (e *QuoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("quote unavailable for %s: %v", e.Ticker, e.Err)
	}
	return fmt.Sprintf("quote unavailable for %s", e.Ticker)
}

func (e *QuoteError) Unwrap() error {
	return e.Err
}

func (e *QuoteError) Is(target error) bool {
	return target == ErrQuoteUnavailable
}

// NewQuoteError creates a new QuoteError.
func NewQuoteError(ticker string, err error) *QuoteError {
	return &QuoteError{Ticker: ticker, Err: err}
}

// PersistenceError wraps a store failure. The in-flight operation is rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error [%s]: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistenceError creates a new PersistenceError. Domain errors pass through
// unchanged so callers can still match them.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// QuoteWarning is a non-fatal per-ticker failure carried in partial results.
type QuoteWarning struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// NewQuoteWarning builds a warning from a lookup error.
func NewQuoteWarning(ticker string, err error) QuoteWarning {
	return QuoteWarning{Ticker: ticker, Reason: err.Error()}
}

// IsDomain reports whether err belongs to the validation or quote taxonomy
// rather than being a storage failure.
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrInvalidQuantity,
		ErrInvalidPrice,
		ErrInvalidTicker,
		ErrInvalidAlert,
		ErrInsufficientShares,
		ErrQuoteUnavailable,
		ErrInsufficientHistory,
		ErrOptimizationDidNotConverge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
