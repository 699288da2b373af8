package collector

import "context"

// DateLayout is the YYYYMMDD form used for history ranges.
const DateLayout = "20060102"

// Provider fetches daily price history for one symbol.
type Provider interface {
	// FetchHistory returns rows of [date, open, high, low, close, volume] as
	// strings, newest first. start and end are inclusive YYYYMMDD dates.
	FetchHistory(ctx context.Context, symbol, start, end string) ([][]string, error)
	Name() string
}
