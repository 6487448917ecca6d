package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	m := New(prometheus.NewRegistry())
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/tenants/:tenant_id/leads/:id/suggested-actions", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/t1/leads/l1/suggested-actions", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(
		http.MethodGet, "/api/v1/tenants/:tenant_id/leads/:id/suggested-actions", "200"))
	assert.Equal(t, 1.0, got)
}

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRouting("round_robin", "assigned")
	m.RecordRouting("round_robin", "assigned")
	m.RecordRuleMatch("default")
	m.RecordOverCapacity()
	m.RecordFollowUpStored("degraded")
	m.RecordFollowUpWriteError("primary", true)
	m.RecordSweep(nil, 5, 2)
	m.ObserveOrchestrator("route", errors.New("x"), 10*time.Millisecond)
	m.UpdateDBConnections(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LeadsRouted.WithLabelValues("round_robin", "assigned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleMatches.WithLabelValues("default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OverCapacity))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FollowUpsStored.WithLabelValues("degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FollowUpWriteErrors.WithLabelValues("primary", "structural")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SweepLeads.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SweepLeads.WithLabelValues("failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.DBConnections))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRouting("user", "assigned")
		m.RecordOverCapacity()
		m.RecordFollowUpStored("primary")
		m.RecordSweep(nil, 1, 0)
	})
}
