package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"IvyRanker/internal/model"
)

// StaticProvider serves fixed rows for development and testing.
type StaticProvider struct {
	Rows map[string][][]string
	// Err, when set, is returned for every symbol without rows.
	Err error
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) FetchHistory(_ context.Context, symbol, _, _ string) ([][]string, error) {
	if rows, ok := p.Rows[symbol]; ok {
		return rows, nil
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return nil, fmt.Errorf("static: unknown symbol %s", symbol)
}

// Collector fetches and parses price histories for a symbol list.
type Collector struct {
	Provider    Provider
	Limiter     *rate.Limiter // throttles provider calls; nil means unlimited
	MaxRetries  int
	Backoff     time.Duration // first retry delay, doubled each attempt
	Concurrency int
	// OnRetry, when set, is called before every retry.
	OnRetry func(symbol string, attempt int, err error)
}

// NewCollector creates a Collector allowing requestsPerSecond provider calls.
func NewCollector(provider Provider, requestsPerSecond float64, maxRetries, concurrency int) *Collector {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Collector{
		Provider:    provider,
		Limiter:     limiter,
		MaxRetries:  maxRetries,
		Backoff:     time.Second,
		Concurrency: concurrency,
	}
}

// FetchAll fetches every symbol between start and end (YYYYMMDD). Symbols that
// fail are returned as SymbolErrors in input order; the rest are in the map.
func (c *Collector) FetchAll(ctx context.Context, symbols []string, start, end string) (map[string]*model.PriceSeries, []model.SymbolError, error) {
	limit := c.Concurrency
	if limit <= 0 {
		limit = 1
	}

	var mu sync.Mutex
	histories := make(map[string]*model.PriceSeries, len(symbols))
	errs := make([]error, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			series, err := c.Fetch(gctx, symbol, start, end)
			if err != nil {
				errs[i] = err
				return nil
			}
			mu.Lock()
			histories[symbol] = series
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var failures []model.SymbolError
	for i, symbol := range symbols {
		if errs[i] != nil {
			log.Printf("[WARN] fetch %s failed: %v", symbol, errs[i])
			failures = append(failures, model.SymbolError{Symbol: symbol, Err: errs[i]})
		}
	}
	log.Printf("[INFO] fetched %d/%d histories from %s", len(histories), len(symbols), c.Provider.Name())
	return histories, failures, nil
}

// Fetch retrieves and parses one symbol's history, retrying provider failures
// with exponential backoff. Unparseable rows are not retried.
func (c *Collector) Fetch(ctx context.Context, symbol, start, end string) (*model.PriceSeries, error) {
	rows, err := c.fetchWithRetry(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	records := make([]model.PriceRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := model.ParseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", symbol, err)
		}
		records = append(records, rec)
	}
	return model.NewPriceSeries(symbol, records)
}

func (c *Collector) fetchWithRetry(ctx context.Context, symbol, start, end string) ([][]string, error) {
	var lastErr error
	for i := 0; i <= c.MaxRetries; i++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		rows, err := c.Provider.FetchHistory(ctx, symbol, start, end)
		if err == nil {
			return rows, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		lastErr = err
		if i == c.MaxRetries {
			break
		}

		backoff := c.Backoff * time.Duration(1<<uint(i))
		log.Printf("[WARN] %s fetch of %s failed (attempt %d/%d): %v, retrying in %v",
			c.Provider.Name(), symbol, i+1, c.MaxRetries+1, err, backoff)
		if c.OnRetry != nil {
			c.OnRetry(symbol, i+1, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", model.ErrProvider, symbol, c.MaxRetries+1, lastErr)
}
