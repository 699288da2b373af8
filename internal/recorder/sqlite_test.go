package recorder

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IvyRanker/internal/model"
)

func sampleRun(id string, at time.Time) *model.BatchResult {
	return &model.BatchResult{
		RunID:       id,
		GeneratedAt: at,
		Ranked: []model.SymbolResult{
			{Symbol: "SPY", Performance: model.PerformanceMetrics{RelativeStrength: 0.12}},
			{Symbol: "EFA", Performance: model.PerformanceMetrics{RelativeStrength: 0.03},
				Snapshot: model.IndicatorSnapshot{Symbol: "EFA", CrossedToday: true}},
		},
		Failures: []model.SymbolError{
			{Symbol: "BAD", Err: errors.Join(model.ErrProvider, errors.New("timeout"))},
		},
		CrossingCount: 1,
	}
}

func TestSQLiteRecorder_RecordRun(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer r.Close()

	base := time.Date(2024, 5, 1, 21, 0, 0, 0, time.UTC)
	require.NoError(t, r.RecordRun(sampleRun("run-1", base)))
	require.NoError(t, r.RecordRun(sampleRun("run-2", base.Add(24*time.Hour))))

	runs, err := r.LatestRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, 2, runs[0].Ranked)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, 1, runs[0].CrossingCount)

	var symbol string
	require.NoError(t, r.db.QueryRow(
		`SELECT symbol FROM symbol_results WHERE run_id = ? AND rank = 1`, "run-1").Scan(&symbol))
	assert.Equal(t, "SPY", symbol)

	var kind string
	require.NoError(t, r.db.QueryRow(
		`SELECT kind FROM symbol_failures WHERE run_id = ?`, "run-1").Scan(&kind))
	assert.Equal(t, "PROVIDER", kind)
}

func TestSQLiteRecorder_DuplicateRunRollsBack(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer r.Close()

	run := sampleRun("same", time.Now())
	require.NoError(t, r.RecordRun(run))
	require.Error(t, r.RecordRun(run))

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM symbol_results`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRun(sampleRun("x", time.Now())))
	runs, err := r.LatestRuns(5)
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, r.Close())
}
