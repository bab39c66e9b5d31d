package observability

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if metrics.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if metrics.HTTPRequestDuration == nil {
		t.Error("HTTPRequestDuration is nil")
	}
	if metrics.AuthzDecisionsTotal == nil {
		t.Error("AuthzDecisionsTotal is nil")
	}
	if metrics.AuthzInvalidRolesTotal == nil {
		t.Error("AuthzInvalidRolesTotal is nil")
	}
	if metrics.DBConnectionsActive == nil {
		t.Error("DBConnectionsActive is nil")
	}
	if metrics.ExpiredInvitesSwept == nil {
		t.Error("ExpiredInvitesSwept is nil")
	}
}

func TestMetrics_Registration(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	// Touch labeled metrics so they show up in the gather
	metrics.HTTPRequestsTotal.WithLabelValues("GET", "/projects", "200").Add(0)
	metrics.AuthzDecisionsTotal.WithLabelValues("member", "denied").Add(0)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := make(map[string]bool)
	for _, f := range families {
		found[f.GetName()] = true
	}

	expected := []string{
		"taskfolio_http_requests_total",
		"taskfolio_authz_decisions_total",
		"taskfolio_authz_invalid_roles_total",
		"taskfolio_db_connections_active",
		"taskfolio_db_connections_idle",
		"taskfolio_expired_invitations_swept_total",
	}
	for _, name := range expected {
		if !found[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}

func TestMetrics_AuthzDecisions(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.AuthzDecisionsTotal.WithLabelValues("member", "denied").Inc()
	metrics.AuthzDecisionsTotal.WithLabelValues("owner", "allowed").Inc()
	metrics.AuthzDecisionsTotal.WithLabelValues("owner", "allowed").Inc()

	expected := `
# HELP taskfolio_authz_decisions_total Total number of authorization decisions
# TYPE taskfolio_authz_decisions_total counter
taskfolio_authz_decisions_total{outcome="allowed",role="owner"} 2
taskfolio_authz_decisions_total{outcome="denied",role="member"} 1
`
	if err := testutil.CollectAndCompare(metrics.AuthzDecisionsTotal, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric values: %v", err)
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	expected := `
# HELP taskfolio_http_requests_total Total number of HTTP requests
# TYPE taskfolio_http_requests_total counter
taskfolio_http_requests_total{method="GET",path="/api/test",status="200"} 1
`
	if err := testutil.CollectAndCompare(metrics.HTTPRequestsTotal, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric values: %v", err)
	}

	if count := testutil.CollectAndCount(metrics.HTTPRequestDuration); count == 0 {
		t.Error("expected request duration to be observed")
	}
}

func TestMetrics_ObserveDBStats(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.ObserveDBStats(sql.DBStats{InUse: 3, Idle: 2})

	if got := testutil.ToFloat64(metrics.DBConnectionsActive); got != 3 {
		t.Errorf("DBConnectionsActive = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.DBConnectionsIdle); got != 2 {
		t.Errorf("DBConnectionsIdle = %v, want 2", got)
	}
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.ObserveDBStats(sql.DBStats{InUse: 3})

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "taskfolio_db_connections_active 3") {
		t.Error("expected connection gauge in metrics output")
	}
}
