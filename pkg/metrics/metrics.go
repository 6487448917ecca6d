package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Routing metrics
	LeadsRouted          *prometheus.CounterVec
	RuleMatches          *prometheus.CounterVec
	OverCapacity         prometheus.Counter
	OrchestratorDuration *prometheus.HistogramVec

	// Follow-up metrics
	FollowUpsStored     *prometheus.CounterVec
	FollowUpWriteErrors *prometheus.CounterVec

	// Sweep metrics
	SweepRuns     *prometheus.CounterVec
	SweepLeads    *prometheus.CounterVec
	DBConnections prometheus.Gauge
}

// New creates a Metrics instance registered with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000},
			},
			[]string{"method", "path"},
		),

		LeadsRouted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadrouter_leads_routed_total",
				Help: "Routing decisions by strategy and outcome",
			},
			[]string{"strategy", "outcome"}, // assigned, kept, no_eligible, error
		),
		RuleMatches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadrouter_rule_matches_total",
				Help: "Rule engine results",
			},
			[]string{"source"}, // rule, tenant_default, default
		),
		OverCapacity: f.NewCounter(prometheus.CounterOpts{
			Name: "leadrouter_over_capacity_assignments_total",
			Help: "Assignments made to reps already at or above capacity",
		}),
		OrchestratorDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadrouter_orchestrator_duration_seconds",
				Help:    "Orchestrator invocation latency in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"operation", "status"},
		),

		FollowUpsStored: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadrouter_followups_stored_total",
				Help: "Follow-up actions persisted, by record shape",
			},
			[]string{"shape"}, // primary, degraded, duplicate
		),
		FollowUpWriteErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadrouter_followup_write_errors_total",
				Help: "Failed follow-up writes, by record shape and error class",
			},
			[]string{"shape", "class"}, // structural, other
		),

		SweepRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadrouter_sweep_runs_total",
				Help: "Stale lead sweep runs",
			},
			[]string{"status"}, // success, failed
		),
		SweepLeads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadrouter_sweep_leads_total",
				Help: "Leads processed by the stale lead sweep",
			},
			[]string{"status"},
		),
		DBConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "leadrouter_db_connections_open",
			Help: "Number of open database connections",
		}),
	}
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern, e.g. /api/v1/tenants/:tenant_id/leads/:id/route

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)
			m.HTTPResponseSize.WithLabelValues(req.Method, path).Observe(float64(c.Response().Size))

			return err
		}
	}
}

// RecordRouting counts one routing decision.
func (m *Metrics) RecordRouting(strategy, outcome string) {
	if m == nil {
		return
	}
	m.LeadsRouted.WithLabelValues(strategy, outcome).Inc()
}

// RecordRuleMatch counts where the directive came from.
func (m *Metrics) RecordRuleMatch(source string) {
	if m == nil {
		return
	}
	m.RuleMatches.WithLabelValues(source).Inc()
}

// RecordOverCapacity counts an assignment beyond advisory capacity.
func (m *Metrics) RecordOverCapacity() {
	if m == nil {
		return
	}
	m.OverCapacity.Inc()
}

// ObserveOrchestrator records invocation latency.
func (m *Metrics) ObserveOrchestrator(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.OrchestratorDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}

// RecordFollowUpStored counts a persisted follow-up.
func (m *Metrics) RecordFollowUpStored(shape string) {
	if m == nil {
		return
	}
	m.FollowUpsStored.WithLabelValues(shape).Inc()
}

// RecordFollowUpWriteError counts a rejected follow-up write.
func (m *Metrics) RecordFollowUpWriteError(shape string, structural bool) {
	if m == nil {
		return
	}
	class := "other"
	if structural {
		class = "structural"
	}
	m.FollowUpWriteErrors.WithLabelValues(shape, class).Inc()
}

// RecordSweep counts a sweep run and its per-lead outcomes.
func (m *Metrics) RecordSweep(err error, processed, failed int) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.SweepRuns.WithLabelValues(status).Inc()
	m.SweepLeads.WithLabelValues("success").Add(float64(processed - failed))
	m.SweepLeads.WithLabelValues("failed").Add(float64(failed))
}

// UpdateDBConnections updates the open database connections gauge
func (m *Metrics) UpdateDBConnections(count int) {
	if m == nil {
		return
	}
	m.DBConnections.Set(float64(count))
}
