package model

import "time"

// SymbolResult bundles everything computed for one ranked symbol.
type SymbolResult struct {
	Symbol      string
	Performance PerformanceMetrics
	Snapshot    IndicatorSnapshot
	Context     MarketContext
}

// BatchResult is the output of one evaluation run over a symbol list.
type BatchResult struct {
	RunID         string
	GeneratedAt   time.Time
	Ranked        []SymbolResult
	Snapshots     map[string]IndicatorSnapshot
	Failures      []SymbolError
	CrossingCount int
}

// RankedSymbols returns the symbols in ranking order.
func (b *BatchResult) RankedSymbols() []string {
	out := make([]string, len(b.Ranked))
	for i, r := range b.Ranked {
		out[i] = r.Symbol
	}
	return out
}
