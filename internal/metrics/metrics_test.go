package metrics

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IvyRanker/internal/model"
)

func TestObserveRun(t *testing.T) {
	m := New(prometheus.NewRegistry())

	res := &model.BatchResult{
		GeneratedAt:   time.Unix(1_700_000_000, 0),
		CrossingCount: 2,
		Failures: []model.SymbolError{
			{Symbol: "A", Err: model.ErrInsufficientData},
			{Symbol: "B", Err: model.ErrInsufficientData},
			{Symbol: "C", Err: model.ErrProvider},
		},
	}
	m.ObserveRun(res, 3*time.Second, nil)
	m.ObserveRun(nil, time.Second, errors.New("boom"))
	m.ProviderRetry("SPY", 1, errors.New("timeout"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SymbolsFailedTotal.WithLabelValues("INSUFFICIENT_DATA")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SymbolsFailedTotal.WithLabelValues("PROVIDER")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Crossings))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderRetriesTotal))
	assert.Equal(t, 1.7e9, testutil.ToFloat64(m.LastRunTimestamp))
}

func TestObserveRun_FailedRunWithResultUpdatesGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	// delivery failed after the batch was ranked and recorded
	res := &model.BatchResult{
		GeneratedAt:   time.Unix(1_800_000_000, 0),
		CrossingCount: 4,
		Failures:      []model.SymbolError{{Symbol: "VNQ", Err: model.ErrProvider}},
	}
	m.ObserveRun(res, time.Second, errors.New("smtp down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Crossings))
	assert.Equal(t, 1.8e9, testutil.ToFloat64(m.LastRunTimestamp))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SymbolsFailedTotal.WithLabelValues("PROVIDER")))
}

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Crossings.Set(4)
	health := NewHealthStatus()
	srv := httptest.NewServer(NewRouter(reg, health))
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, _ := get("/report")
	assert.Equal(t, http.StatusNotFound, code)

	health.SetRun("run-1", time.Now(), 3, 1, "Symbol 50DAY\nSPY 1.00\n")
	code, body := get("/report")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Symbol 50DAY\nSPY 1.00\n", body)

	code, body = get("/healthz")
	assert.Equal(t, http.StatusOK, code)
	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &view))
	assert.Equal(t, "run-1", view["last_run_id"])
	assert.EqualValues(t, 3, view["ranked"])

	health.SetError(errors.New("provider down"))
	code, _ = get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, body = get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "ivyranker_crossings 4")
}
