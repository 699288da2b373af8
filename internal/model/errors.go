package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData means a history is shorter than a required window or lag.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidWindow means a non-positive window size was requested.
	ErrInvalidWindow = errors.New("invalid window")
	// ErrInvalidData means degenerate input, e.g. a zero denominator or an unparseable row.
	ErrInvalidData = errors.New("invalid data")
	// ErrProvider means the price history could not be fetched.
	ErrProvider = errors.New("provider error")
)

// SymbolError attaches a symbol to a per-symbol failure.
type SymbolError struct {
	Symbol string
	Err    error
}

func (e *SymbolError) Error() string { return fmt.Sprintf("%s: %v", e.Symbol, e.Err) }

func (e *SymbolError) Unwrap() error { return e.Err }

// Kind returns a short label for the error class, used in reports and run history.
func (e *SymbolError) Kind() string {
	switch {
	case errors.Is(e.Err, ErrInsufficientData):
		return "INSUFFICIENT_DATA"
	case errors.Is(e.Err, ErrInvalidWindow):
		return "INVALID_WINDOW"
	case errors.Is(e.Err, ErrInvalidData):
		return "INVALID_DATA"
	case errors.Is(e.Err, ErrProvider):
		return "PROVIDER"
	default:
		return "UNKNOWN"
	}
}
