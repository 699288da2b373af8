package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus tracks the latest run for the health and report endpoints.
type HealthStatus struct {
	mu     sync.RWMutex
	view   healthView
	report string
}

type healthView struct {
	StartedAt time.Time `json:"started_at"`
	LastRunID string    `json:"last_run_id,omitempty"`
	LastRunAt time.Time `json:"last_run_at"`
	LastError string    `json:"last_error,omitempty"`
	Ranked    int       `json:"ranked"`
	Failed    int       `json:"failed"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{view: healthView{StartedAt: time.Now()}}
}

// SetRun stores the latest successful run.
func (h *HealthStatus) SetRun(runID string, at time.Time, ranked, failed int, table string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.view.LastRunID = runID
	h.view.LastRunAt = at
	h.view.LastError = ""
	h.view.Ranked = ranked
	h.view.Failed = failed
	h.report = table
}

// SetError records a failed run; the previous report stays available.
func (h *HealthStatus) SetError(err error) {
	h.mu.Lock()
	h.view.LastError = err.Error()
	h.mu.Unlock()
}

// Table returns the latest report table, empty before the first run.
func (h *HealthStatus) Table() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.report
}

func (h *HealthStatus) snapshot() healthView {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.view
}

// NewRouter serves /metrics from g, /healthz and /report from health.
func NewRouter(g prometheus.Gatherer, health *HealthStatus) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s := health.snapshot()
		status := http.StatusOK
		if s.LastError != "" {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(s)
	})

	r.Get("/report", func(w http.ResponseWriter, _ *http.Request) {
		table := health.Table()
		if table == "" {
			http.Error(w, "no report yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(table))
	})

	return r
}
