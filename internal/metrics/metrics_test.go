package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_RegistersOnCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.EvaluationsTotal.WithLabelValues("sharpe").Inc()
	m.NaNResults.WithLabelValues("sortino").Add(2)
	if got := testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("sharpe")); got != 1 {
		t.Errorf("evaluations: got %v", got)
	}
	if got := testutil.ToFloat64(m.NaNResults.WithLabelValues("sortino")); got != 2 {
		t.Errorf("nan results: got %v", got)
	}

	// A second set on a fresh registry must not collide.
	NewMetrics(prometheus.NewRegistry())
}

func TestObserveStore(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveStore("redis", time.Now(), nil)
	m.ObserveStore("redis", time.Now(), errors.New("down"))
	if got := testutil.ToFloat64(m.StoreErrors.WithLabelValues("redis")); got != 1 {
		t.Errorf("store errors: got %v", got)
	}
	var nilMetrics *Metrics
	nilMetrics.ObserveStore("sqlite", time.Now(), nil)
}

func TestServer_MetricsAndHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RunsTotal.Inc()

	health := NewHealthStatus()
	health.RecordRun("run-1", time.Now())
	srv := NewServer(":0", reg, health)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "analytics_runs_total 1") {
		t.Errorf("metrics body missing counter:\n%s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	var body struct {
		Status        string `json:"status"`
		LastRunID     string `json:"last_run_id"`
		RunsCompleted int    `json:"runs_completed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "healthy" || body.LastRunID != "run-1" || body.RunsCompleted != 1 {
		t.Errorf("health: %+v", body)
	}
}

func TestHealth_DegradedAfterFailedCheck(t *testing.T) {
	health := NewHealthStatus()
	health.mu.Lock()
	health.LastCheckAt = time.Now()
	health.mu.Unlock()
	health.SetSQLiteOK(true)
	health.SetRedisConnected(false)

	rec := httptest.NewRecorder()
	health.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code: %d", rec.Code)
	}
}
