package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"IvyRanker/internal/collector"
	"IvyRanker/internal/config"
	"IvyRanker/internal/metrics"
	"IvyRanker/internal/notifier"
	"IvyRanker/internal/pipeline"
	"IvyRanker/internal/recorder"
	"IvyRanker/internal/scheduler"
)

// app is the wired set of components shared by run and serve.
type app struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	telegram *notifier.TelegramNotifier
	registry *prometheus.Registry
	health   *metrics.HealthStatus
	recorder recorder.Recorder
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(cfg *config.Config, withMail bool) (*app, error) {
	var provider collector.Provider
	switch cfg.DataSource.Provider {
	case "stooq":
		provider = collector.NewStooqProvider(cfg.DataSource.BaseURL, cfg.Proxy)
	default:
		p := collector.NewYahooProvider(cfg.Proxy)
		if cfg.DataSource.BaseURL != "" {
			p.BaseURL = cfg.DataSource.BaseURL
		}
		provider = p
	}
	log.Printf("[INFO] data source: %s", provider.Name())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	health := metrics.NewHealthStatus()

	col := collector.NewCollector(provider, cfg.DataSource.RequestsPerSecond, cfg.DataSource.MaxRetries, cfg.DataSource.Concurrency)
	col.OnRetry = m.ProviderRetry

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	a := &app{cfg: cfg, registry: registry, health: health, recorder: rec}
	a.pipeline = &pipeline.Pipeline{
		Config:    cfg,
		Collector: col,
		Recorder:  rec,
		Metrics:   m,
		Health:    health,
	}

	if withMail {
		user, secret, err := cfg.MailCredentials()
		if err != nil {
			rec.Close()
			return nil, fmt.Errorf("mail credentials: %w", err)
		}
		recipients, err := config.LoadLines(cfg.RecipientsFile)
		if err != nil {
			rec.Close()
			return nil, fmt.Errorf("load recipients: %w", err)
		}
		a.pipeline.Notifiers = append(a.pipeline.Notifiers,
			notifier.NewEmailNotifier(cfg.SMTP.Host, cfg.SMTP.Port, user, secret, recipients))
	}
	if cfg.Telegram.BotToken != "" {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		a.pipeline.Alerter = a.telegram
		if withMail {
			a.pipeline.Notifiers = append(a.pipeline.Notifiers, a.telegram)
		}
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		log.Printf("[WARN] close recorder: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runBatch(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, !noMail)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	res, err := a.pipeline.Run(ctx, pipeline.RunOptions{NoMail: noMail})
	if err != nil {
		return err
	}
	log.Printf("[INFO] run %s complete: %d ranked, %d skipped, %d crossings",
		res.RunID, len(res.Ranked), len(res.Failures), res.CrossingCount)
	return nil
}

func serve(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	sched := scheduler.NewScheduler(ctx, a.pipeline, a.health)
	if err := sched.RegisterAll(cfg.Schedule.DailyCron, cfg.Schedule.UpdateCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	var srv *http.Server
	if cfg.Metrics.ListenAddr != "" {
		srv = &http.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           metrics.NewRouter(a.registry, a.health),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("[INFO] metrics listening on %s", cfg.Metrics.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[ERROR] metrics server: %v", err)
			}
		}()
	}

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing daily batch now")
		go sched.RunNow()
	}

	log.Println("[INFO] IvyRanker is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Println("[INFO] shutdown signal received, stopping...")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] metrics server shutdown: %v", err)
		}
	}
	return nil
}
