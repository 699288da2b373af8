package strategy

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"IvyRanker/internal/calculator"
	"IvyRanker/internal/model"
)

// Moving-average windows used for the trend signal and ranking.
const (
	FastWindow = 50
	SlowWindow = 200
	RSIPeriod  = 14
)

// Options controls batch evaluation.
type Options struct {
	// FailFast aborts the batch on the first symbol failure instead of
	// recording it and continuing.
	FailFast bool
	// Concurrency bounds the number of symbols evaluated at once; <= 0 means 1.
	Concurrency int
}

// Evaluate computes the latest 50/200-day moving-average state of one symbol.
// The series must hold at least SlowWindow+1 closes so that both averages have
// a value for today and yesterday.
func Evaluate(symbol string, series *model.PriceSeries) (model.IndicatorSnapshot, error) {
	if series == nil || series.Len() == 0 {
		return model.IndicatorSnapshot{}, fmt.Errorf("%w: no price history", model.ErrInsufficientData)
	}
	closes := series.Closes()
	fast, err := calculator.SimpleMovingAverage(closes, FastWindow)
	if err != nil {
		return model.IndicatorSnapshot{}, err
	}
	slow, err := calculator.SimpleMovingAverage(closes, SlowWindow)
	if err != nil {
		return model.IndicatorSnapshot{}, err
	}
	if len(slow) < 2 {
		return model.IndicatorSnapshot{}, fmt.Errorf("%w: crossing check needs %d closes, have %d",
			model.ErrInsufficientData, SlowWindow+1, len(closes))
	}

	latest, _ := series.Latest()
	return model.IndicatorSnapshot{
		Symbol:               symbol,
		Date:                 latest.Date,
		FiftyDay:             fast[0],
		TwoHundredDay:        slow[0],
		FiftyAboveTwoHundred: fast[0] > slow[0],
		CrossedToday:         spreadFlipped(fast[0]-slow[0], fast[1]-slow[1]),
	}, nil
}

// spreadFlipped reports a strict sign change between yesterday's and today's spread.
// A spread of exactly zero on either day is not a crossing.
func spreadFlipped(today, yesterday float64) bool {
	return today*yesterday < 0
}

// EvaluateAll ranks every symbol by relative strength and snapshots its trend state.
// Per-symbol failures are collected in the result unless opts.FailFast is set.
func EvaluateAll(ctx context.Context, symbols []string, histories map[string]*model.PriceSeries, opts Options) (*model.BatchResult, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 1
	}

	results := make([]model.SymbolResult, len(symbols))
	errs := make([]error, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			res, err := evaluateSymbol(symbol, histories[symbol])
			if err != nil {
				errs[i] = err
				if opts.FailFast {
					return &model.SymbolError{Symbol: symbol, Err: err}
				}
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := &model.BatchResult{
		GeneratedAt: time.Now(),
		Snapshots:   make(map[string]model.IndicatorSnapshot, len(symbols)),
	}
	bySymbol := make(map[string]model.SymbolResult, len(symbols))
	metrics := make(map[string]model.PerformanceMetrics, len(symbols))
	for i, symbol := range symbols {
		if errs[i] != nil {
			log.Printf("[WARN] %s skipped: %v", symbol, errs[i])
			batch.Failures = append(batch.Failures, model.SymbolError{Symbol: symbol, Err: errs[i]})
			continue
		}
		bySymbol[symbol] = results[i]
		metrics[symbol] = results[i].Performance
	}

	for _, symbol := range calculator.Rank(symbols, metrics) {
		res := bySymbol[symbol]
		batch.Ranked = append(batch.Ranked, res)
		batch.Snapshots[symbol] = res.Snapshot
		if res.Snapshot.CrossedToday {
			batch.CrossingCount++
		}
	}
	return batch, nil
}

func evaluateSymbol(symbol string, series *model.PriceSeries) (model.SymbolResult, error) {
	if series == nil || series.Len() == 0 {
		return model.SymbolResult{}, fmt.Errorf("%w: no price history", model.ErrInsufficientData)
	}

	closes := series.Closes()
	smoothed, err := calculator.SimpleMovingAverage(closes, FastWindow)
	if err != nil {
		return model.SymbolResult{}, err
	}
	perf, err := calculator.ComputePerformance(smoothed, true)
	if err != nil {
		return model.SymbolResult{}, err
	}
	snap, err := Evaluate(symbol, series)
	if err != nil {
		return model.SymbolResult{}, err
	}

	return model.SymbolResult{
		Symbol:      symbol,
		Performance: perf,
		Snapshot:    snap,
		Context:     marketContext(symbol, closes),
	}, nil
}

// marketContext is informational only, so failures degrade to neutral values.
func marketContext(symbol string, closes []float64) model.MarketContext {
	mc := model.MarketContext{RSI14: 50, Position52w: 0.5}

	if rsi, err := calculator.CalculateRSI(closes, RSIPeriod); err != nil {
		log.Printf("[WARN] %s RSI calculation failed: %v, defaulting to 50", symbol, err)
	} else {
		mc.RSI14 = rsi
	}

	high, low, err := calculator.Calculate52WeekRange(closes)
	if err != nil {
		log.Printf("[WARN] %s 52-week range calculation failed: %v", symbol, err)
		return mc
	}
	mc.High52w, mc.Low52w = high, low
	if pos, err := calculator.Calculate52WeekPosition(closes[0], high, low); err == nil {
		mc.Position52w = pos
	}
	return mc
}
