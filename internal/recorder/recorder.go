package recorder

import "IvyRanker/internal/model"

// RunSummary is a compact view of a recorded run.
type RunSummary struct {
	RunID         string
	Timestamp     int64
	Ranked        int
	Failed        int
	CrossingCount int
}

// Recorder persists batch results for later analysis.
type Recorder interface {
	RecordRun(run *model.BatchResult) error
	LatestRuns(limit int) ([]RunSummary, error)
	Close() error
}
