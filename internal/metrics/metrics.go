package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for backtest analysis runs.
type Metrics struct {
	RunsTotal      prometheus.Counter
	RunDur         prometheus.Histogram
	BarsLoaded     *prometheus.CounterVec // labels: source
	PositionsTotal prometheus.Counter

	// Criteria
	CriterionDur     *prometheus.HistogramVec // labels: criterion
	EvaluationsTotal *prometheus.CounterVec   // labels: criterion
	NaNResults       *prometheus.CounterVec   // labels: criterion

	// Indicator memo tables
	IndicatorFills prometheus.Counter

	// Sinks
	StoreWriteDur *prometheus.HistogramVec // labels: store
	StoreErrors   *prometheus.CounterVec   // labels: store
}

// NewMetrics creates every collector and registers it with reg. A nil reg
// means the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analytics_runs_total",
			Help: "Total analysis runs evaluated",
		}),
		RunDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analytics_run_duration_seconds",
			Help:    "Wall time to evaluate every criterion of a run",
			Buckets: prometheus.DefBuckets,
		}),
		BarsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_bars_loaded_total",
			Help: "Bars loaded into series (by source)",
		}, []string{"source"}),
		PositionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analytics_positions_total",
			Help: "Closed positions evaluated",
		}),

		CriterionDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analytics_criterion_duration_seconds",
			Help:    "Criterion evaluation latency",
			Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"criterion"}),
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_criterion_evaluations_total",
			Help: "Criterion evaluations",
		}, []string{"criterion"}),
		NaNResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_criterion_nan_total",
			Help: "Criterion evaluations that were undefined (NaN)",
		}, []string{"criterion"}),

		IndicatorFills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analytics_indicator_fills_total",
			Help: "Indicator values computed and memoized",
		}),

		StoreWriteDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analytics_store_write_duration_seconds",
			Help:    "Report sink write latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"store"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_store_errors_total",
			Help: "Report sink failures",
		}, []string{"store"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDur,
		m.BarsLoaded,
		m.PositionsTotal,
		m.CriterionDur,
		m.EvaluationsTotal,
		m.NaNResults,
		m.IndicatorFills,
		m.StoreWriteDur,
		m.StoreErrors,
	)

	return m
}

// ObserveStore times a sink write and counts its failure.
func (m *Metrics) ObserveStore(store string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StoreWriteDur.WithLabelValues(store).Observe(time.Since(start).Seconds())
	if err != nil {
		m.StoreErrors.WithLabelValues(store).Inc()
	}
}

// HealthStatus represents the health of a backtest process.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastRunID      string    `json:"last_run_id"`
	LastRunAt      time.Time `json:"last_run_at"`
	RunsCompleted  int       `json:"runs_completed"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

// RecordRun notes a completed analysis run.
func (h *HealthStatus) RecordRun(runID string, at time.Time) {
	h.mu.Lock()
	h.LastRunID = runID
	h.LastRunAt = at
	h.RunsCompleted++
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint. Sinks that were never checked do
// not degrade the status.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.LastCheckAt.IsZero() && (!h.RedisConnected || !h.SQLiteOK) {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastRunID       string  `json:"last_run_id"`
		LastRunAt       string  `json:"last_run_at"`
		RunsCompleted   int     `json:"runs_completed"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastRunID:       h.LastRunID,
		LastRunAt:       h.LastRunAt.Format(time.RFC3339),
		RunsCompleted:   h.RunsCompleted,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server over gatherer; nil means
// the default gatherer.
func NewServer(addr string, gatherer prometheus.Gatherer, health *HealthStatus) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler exposes the mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
