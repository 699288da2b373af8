package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"IvyRanker/internal/metrics"
	"IvyRanker/internal/notifier"
	"IvyRanker/internal/pipeline"
	"IvyRanker/internal/recorder"
)

const helpText = "Available commands:\n• /report - latest ranking table\n• /history - recent recorded runs\n• /run - run the batch now\n• /help - this message"

// historyLimit is how many recorded runs /history lists.
const historyLimit = 5

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Pipeline *pipeline.Pipeline
	Health   *metrics.HealthStatus
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, p *pipeline.Pipeline, health *metrics.HealthStatus) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Pipeline: p,
		Health:   health,
		Ctx:      ctx,
	}
}

// RegisterAll registers the daily batch and, when updateCron is set, the
// incremental update.
func (s *Scheduler) RegisterAll(dailyCron, updateCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	if updateCron == "" {
		return nil
	}
	if _, err := s.Cron.AddFunc(updateCron, s.updateTask); err != nil {
		return fmt.Errorf("register update task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the daily batch immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.dailyTask()
}

func (s *Scheduler) dailyTask() {
	log.Println("[INFO] running daily batch")
	res, err := s.Pipeline.Run(s.Ctx, pipeline.RunOptions{})
	if err != nil {
		log.Printf("[ERROR] daily batch: %v", err)
		return
	}
	log.Printf("[INFO] daily batch %s done: %d ranked, %d crossings", res.RunID, len(res.Ranked), res.CrossingCount)
}

func (s *Scheduler) updateTask() {
	log.Println("[INFO] running incremental update")
	updated, err := s.Pipeline.Update(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] incremental update: %v", err)
		return
	}
	log.Printf("[INFO] incremental update advanced %d symbols", len(updated))
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	cmd, _, _ := strings.Cut(strings.TrimSpace(command), " ")
	// Group chats append the bot name: /report@IvyRankerBot.
	cmd, _, _ = strings.Cut(cmd, "@")

	switch cmd {
	case "/report":
		if s.Health == nil {
			return "No report yet."
		}
		table := s.Health.Table()
		if table == "" {
			return "No report yet."
		}
		return notifier.FormatTelegramReport(notifier.Report{Subject: "Latest ranking", Table: table})
	case "/history":
		return s.history()
	case "/run":
		go s.dailyTask()
		return "Batch run started."
	default:
		return helpText
	}
}

func (s *Scheduler) history() string {
	if s.Pipeline == nil || s.Pipeline.Recorder == nil {
		return "No runs recorded."
	}
	runs, err := s.Pipeline.Recorder.LatestRuns(historyLimit)
	if err != nil {
		log.Printf("[ERROR] load run history: %v", err)
		return "Run history unavailable."
	}
	if len(runs) == 0 {
		return "No runs recorded."
	}
	return FormatHistory(runs)
}

// FormatHistory renders recorded runs one per line, newest first.
func FormatHistory(runs []recorder.RunSummary) string {
	var sb strings.Builder
	sb.WriteString("Recent runs:\n")
	for _, r := range runs {
		fmt.Fprintf(&sb, "• %s  %s  ranked %d, skipped %d, crossings %d\n",
			time.Unix(r.Timestamp, 0).UTC().Format("2006-01-02 15:04 UTC"),
			r.RunID, r.Ranked, r.Failed, r.CrossingCount)
	}
	return sb.String()
}
