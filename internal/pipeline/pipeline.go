// Package pipeline runs the daily ranking batch end to end: fetch, evaluate,
// write reports, record, checkpoint and notify.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"IvyRanker/internal/checkpoint"
	"IvyRanker/internal/collector"
	"IvyRanker/internal/config"
	"IvyRanker/internal/metrics"
	"IvyRanker/internal/model"
	"IvyRanker/internal/notifier"
	"IvyRanker/internal/recorder"
	"IvyRanker/internal/report"
	"IvyRanker/internal/strategy"
)

// Alerter sends a short preformatted message, e.g. a Telegram chat.
type Alerter interface {
	Send(ctx context.Context, text string) error
}

// Pipeline holds everything a run needs. Metrics, Health and Alerter are optional.
type Pipeline struct {
	Config    *config.Config
	Collector *collector.Collector
	Recorder  recorder.Recorder
	Notifiers []notifier.Notifier
	Alerter   Alerter
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
	Now       func() time.Time

	mu       sync.Mutex // one run or update at a time
	trackers map[string]*strategy.Tracker
}

// RunOptions tweaks a single batch run.
type RunOptions struct {
	NoMail bool
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run executes one batch over the configured symbol list. A result is returned
// alongside a notification error so the caller can still inspect the run.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*model.BatchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	res, err := p.run(ctx, opts)
	if p.Metrics != nil {
		p.Metrics.ObserveRun(res, time.Since(start), err)
	}
	if err != nil && p.Health != nil {
		p.Health.SetError(err)
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, opts RunOptions) (*model.BatchResult, error) {
	cfg := p.Config
	symbols, err := config.LoadSymbols(cfg.SymbolsFile)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] run started for %d symbols", len(symbols))

	end := p.now().Format(collector.DateLayout)
	histories, fetchFailures, err := p.Collector.FetchAll(ctx, symbols, cfg.DataSource.StartDate, end)
	if err != nil {
		return nil, fmt.Errorf("fetch histories: %w", err)
	}
	if cfg.Batch.FailFast && len(fetchFailures) > 0 {
		return nil, &fetchFailures[0]
	}

	fetched := make([]string, 0, len(histories))
	for _, s := range symbols {
		if histories[s] != nil {
			fetched = append(fetched, s)
		}
	}
	res, err := strategy.EvaluateAll(ctx, fetched, histories, strategy.Options{
		FailFast:    cfg.Batch.FailFast,
		Concurrency: cfg.Batch.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	res.RunID = uuid.NewString()
	res.Failures = append(fetchFailures, res.Failures...)
	log.Printf("[INFO] run %s ranked %d symbols, %d skipped, %d crossings",
		res.RunID, len(res.Ranked), len(res.Failures), res.CrossingCount)

	attachments, err := p.writeOutputs(res, histories)
	if err != nil {
		return nil, err
	}
	table := report.FormatTable(res)

	if err := p.Recorder.RecordRun(res); err != nil {
		log.Printf("[ERROR] record run %s: %v", res.RunID, err)
	}
	p.seedTrackers(res, histories)
	if p.Health != nil {
		p.Health.SetRun(res.RunID, res.GeneratedAt, len(res.Ranked), len(res.Failures), table)
	}

	if opts.NoMail {
		log.Println("[INFO] notifications disabled for this run")
		return res, nil
	}
	r := notifier.Report{
		Subject:     cfg.SMTP.Subject,
		Body:        notifier.FormatBody(res.CrossingCount) + notifier.FormatFailures(res.Failures),
		Table:       table,
		Attachments: attachments,
	}
	return res, p.notify(ctx, r)
}

// writeOutputs writes the text table, plot PDF and optional workbook into the
// output directory and returns their paths.
func (p *Pipeline) writeOutputs(res *model.BatchResult, histories map[string]*model.PriceSeries) ([]string, error) {
	out := p.Config.Output
	if err := os.MkdirAll(out.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	tablePath := filepath.Join(out.Dir, out.ReportFile)
	if err := report.WriteTable(tablePath, res); err != nil {
		return nil, err
	}
	paths := []string{tablePath}

	if len(res.Ranked) > 0 {
		plotPath := filepath.Join(out.Dir, out.PlotFile)
		if err := writePlots(plotPath, res.RankedSymbols(), histories); err != nil {
			return nil, err
		}
		paths = append(paths, plotPath)
	} else {
		log.Println("[WARN] nothing ranked, skipping plots")
	}

	if out.XLSXFile != "" {
		xlsxPath := filepath.Join(out.Dir, out.XLSXFile)
		if err := report.WriteXLSX(xlsxPath, res); err != nil {
			return nil, err
		}
		paths = append(paths, xlsxPath)
	}
	log.Printf("[INFO] wrote %d report files to %s", len(paths), out.Dir)
	return paths, nil
}

func writePlots(path string, symbols []string, histories map[string]*model.PriceSeries) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.RenderPlots(f, symbols, histories); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (p *Pipeline) notify(ctx context.Context, r notifier.Report) error {
	var errs []error
	for _, n := range p.Notifiers {
		if err := n.Notify(ctx, r); err != nil {
			log.Printf("[ERROR] %s notification failed: %v", n.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// seedTrackers rebuilds the incremental trackers from this run's histories and
// checkpoints them when a state file is configured.
func (p *Pipeline) seedTrackers(res *model.BatchResult, histories map[string]*model.PriceSeries) {
	path := p.Config.Checkpoint.StateFile
	if path == "" {
		return
	}
	trackers := make(map[string]*strategy.Tracker, len(res.Ranked))
	for _, r := range res.Ranked {
		trackers[r.Symbol] = strategy.SeedTracker(histories[r.Symbol])
	}
	p.trackers = trackers
	if err := checkpoint.Save(path, checkpoint.States(trackers)); err != nil {
		log.Printf("[ERROR] save checkpoint: %v", err)
	}
}
