package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IvyRanker/internal/metrics"
	"IvyRanker/internal/model"
	"IvyRanker/internal/pipeline"
	"IvyRanker/internal/recorder"
)

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), nil, nil)
	require.NoError(t, s.RegisterAll("0 30 17 * * 1-5", ""))
	assert.Len(t, s.Cron.Entries(), 1)

	s = NewScheduler(context.Background(), nil, nil)
	require.NoError(t, s.RegisterAll("0 30 17 * * 1-5", "0 0 9-16 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 2)
}

func TestRegisterAll_BadExpression(t *testing.T) {
	s := NewScheduler(context.Background(), nil, nil)
	err := s.RegisterAll("every day", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register daily task")

	s = NewScheduler(context.Background(), nil, nil)
	err = s.RegisterAll("0 30 17 * * 1-5", "61 * * * * *")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register update task")
}

func TestHandleCommand(t *testing.T) {
	health := metrics.NewHealthStatus()
	s := NewScheduler(context.Background(), nil, health)
	ctx := context.Background()

	assert.Equal(t, helpText, s.HandleCommand(ctx, "/help"))
	assert.Equal(t, helpText, s.HandleCommand(ctx, "hello"))
	assert.Equal(t, "No report yet.", s.HandleCommand(ctx, "/report"))

	health.SetRun("run-1", time.Now(), 1, 0, "3 MO\tSYMB\n1.0\tA&B\n")
	reply := s.HandleCommand(ctx, "/report@IvyRankerBot")
	assert.Contains(t, reply, "<pre>")
	assert.Contains(t, reply, "A&amp;B")
}

func TestHandleCommand_HistoryListsRecordedRuns(t *testing.T) {
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer rec.Close()

	s := NewScheduler(context.Background(), &pipeline.Pipeline{Recorder: rec}, nil)
	ctx := context.Background()
	assert.Equal(t, "No runs recorded.", s.HandleCommand(ctx, "/history"))

	base := time.Date(2024, 5, 1, 21, 0, 0, 0, time.UTC)
	for i := 0; i < historyLimit+2; i++ {
		require.NoError(t, rec.RecordRun(&model.BatchResult{
			RunID:         fmt.Sprintf("run-%d", i),
			GeneratedAt:   base.Add(time.Duration(i) * 24 * time.Hour),
			Ranked:        []model.SymbolResult{{Symbol: "SPY"}},
			Failures:      []model.SymbolError{{Symbol: "BAD", Err: errors.New("timeout")}},
			CrossingCount: i,
		}))
	}

	reply := s.HandleCommand(ctx, "/history@IvyRankerBot")
	lines := strings.Split(strings.TrimSpace(reply), "\n")
	require.Len(t, lines, historyLimit+1)
	assert.Equal(t, "Recent runs:", lines[0])
	assert.Equal(t, "• 2024-05-07 21:00 UTC  run-6  ranked 1, skipped 1, crossings 6", lines[1])
	assert.NotContains(t, reply, "run-1 ")
}

func TestHandleCommand_HistoryWithoutPipeline(t *testing.T) {
	s := NewScheduler(context.Background(), nil, nil)
	assert.Equal(t, "No runs recorded.", s.HandleCommand(context.Background(), "/history"))
}
