package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"IvyRanker/internal/checkpoint"
	"IvyRanker/internal/collector"
	"IvyRanker/internal/model"
	"IvyRanker/internal/notifier"
	"IvyRanker/internal/strategy"
)

// updateLookbackDays is how far back an incremental update fetches.
const updateLookbackDays = 10

// Update feeds the closes published since the last checkpoint into the
// trackers and alerts on every 50/200-day crossing. It returns the latest
// snapshot of each symbol that received new data.
func (p *Pipeline) Update(ctx context.Context) ([]model.IndicatorSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	path := p.Config.Checkpoint.StateFile
	if path == "" {
		return nil, errors.New("checkpoint.state_file is not configured")
	}
	if p.trackers == nil {
		states, err := checkpoint.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load checkpoint: %w", err)
		}
		trackers, errs := checkpoint.Trackers(states)
		for _, err := range errs {
			log.Printf("[WARN] dropping checkpoint entry: %v", err)
		}
		p.trackers = trackers
	}
	if len(p.trackers) == 0 {
		log.Println("[WARN] no trackers to update, run a full batch first")
		return nil, nil
	}

	symbols := make([]string, 0, len(p.trackers))
	for s := range p.trackers {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	now := p.now()
	start := now.AddDate(0, 0, -updateLookbackDays).Format(collector.DateLayout)
	histories, _, err := p.Collector.FetchAll(ctx, symbols, start, now.Format(collector.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("fetch recent closes: %w", err)
	}

	var updated []model.IndicatorSnapshot
	for _, symbol := range symbols {
		series := histories[symbol]
		if series == nil {
			continue
		}
		snap, pushed, crossings := advance(p.trackers[symbol], series)
		if pushed == 0 {
			continue
		}
		if snap.Symbol == "" {
			log.Printf("[INFO] %s took %d closes, averages not ready yet", symbol, pushed)
			continue
		}
		log.Printf("[INFO] %s advanced by %d closes to %s", symbol, pushed, snap.Date.Format("2006-01-02"))
		updated = append(updated, snap)
		for _, c := range crossings {
			p.alert(ctx, notifier.FormatCrossAlert(c))
		}
	}

	if err := checkpoint.Save(path, checkpoint.States(p.trackers)); err != nil {
		return updated, fmt.Errorf("save checkpoint: %w", err)
	}
	return updated, nil
}

// advance pushes the records of a newest-first series that the tracker has not
// seen yet, oldest first.
func advance(t *strategy.Tracker, series *model.PriceSeries) (latest model.IndicatorSnapshot, pushed int, crossings []model.IndicatorSnapshot) {
	for i := series.Len() - 1; i >= 0; i-- {
		rec := series.Records[i]
		if !rec.Date.After(t.LastDate()) {
			continue
		}
		snap, err := t.Push(rec)
		pushed++
		if err != nil {
			continue
		}
		latest = snap
		if snap.CrossedToday {
			crossings = append(crossings, snap)
		}
	}
	return latest, pushed, crossings
}

func (p *Pipeline) alert(ctx context.Context, text string) {
	if p.Alerter == nil {
		log.Printf("[INFO] %s", text)
		return
	}
	if err := p.Alerter.Send(ctx, text); err != nil {
		log.Printf("[ERROR] send alert: %v", err)
	}
}
