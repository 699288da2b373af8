package recorder

import "IvyRanker/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *model.BatchResult) error   { return nil }
func (n *NoopRecorder) LatestRuns(_ int) ([]RunSummary, error) { return nil, nil }
func (n *NoopRecorder) Close() error                           { return nil }
