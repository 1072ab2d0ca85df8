package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestQuoteErrorMatchesSentinel(t *testing.T) {
	cause := fmt.Errorf("status 502")
	err := fmt.Errorf("valuation: %w", NewQuoteError("SBER", cause))

	if !errors.Is(err, ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	var qe *QuoteError
	if !errors.As(err, &qe) || qe.Ticker != "SBER" {
		t.Fatalf("expected QuoteError for SBER, got %v", err)
	}
}

func TestNewPersistenceError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantPersistence bool
		wantNil         bool
	}{
		{"nil stays nil", nil, false, true},
		{"storage failure wrapped", errors.New("database is locked"), true, false},
		{"domain error passes through", fmt.Errorf("remove: %w", ErrInsufficientShares), false, false},
		{"already wrapped", &PersistenceError{Op: "x", Err: errors.New("y")}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPersistenceError("op", tt.err)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if errors.Is(got, ErrPersistence) != tt.wantPersistence {
				t.Errorf("errors.Is(ErrPersistence) = %v, want %v (err=%v)", !tt.wantPersistence, tt.wantPersistence, got)
			}
		})
	}
}

func TestIsDomain(t *testing.T) {
	if !IsDomain(fmt.Errorf("wrap: %w", ErrInvalidQuantity)) {
		t.Errorf("ErrInvalidQuantity should be a domain error")
	}
	if IsDomain(errors.New("disk full")) {
		t.Errorf("plain error should not be a domain error")
	}
}
