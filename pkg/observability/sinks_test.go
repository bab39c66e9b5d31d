package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/taskfolio/taskfolio/pkg/authz"
)

func TestDecisionSink(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	sink := NewDecisionSink(logger, metrics)

	t.Run("allowed decision", func(t *testing.T) {
		buf.Reset()
		sink.LogDecision(context.Background(), 2, authz.Decision{
			Allowed: true,
			Role:    authz.RoleAdmin,
			Reason:  `permission "invite_team_members" granted by role "admin"`,
		})

		var entry map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("Failed to unmarshal log entry: %v", err)
		}
		if entry["level"] != "INFO" {
			t.Errorf("level = %v, want INFO", entry["level"])
		}
		if entry["allowed"] != true {
			t.Errorf("allowed = %v, want true", entry["allowed"])
		}
		if entry["role"] != "admin" {
			t.Errorf("role = %v, want admin", entry["role"])
		}
		if entry["user_id"] != float64(2) {
			t.Errorf("user_id = %v, want 2", entry["user_id"])
		}
	})

	t.Run("denied decision logs at info, not error", func(t *testing.T) {
		buf.Reset()
		sink.LogDecision(context.Background(), 3, authz.Decision{
			Allowed: false,
			Role:    authz.RoleMember,
			Reason:  `role "member" lacks permission "manage_billing"`,
		})

		var entry map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("Failed to unmarshal log entry: %v", err)
		}
		if entry["level"] != "INFO" {
			t.Errorf("level = %v, want INFO", entry["level"])
		}
		if entry["allowed"] != false {
			t.Errorf("allowed = %v, want false", entry["allowed"])
		}
	})

	t.Run("decisions increment counters", func(t *testing.T) {
		value := testutil.ToFloat64(metrics.AuthzDecisionsTotal.WithLabelValues("admin", "allowed"))
		if value != 1 {
			t.Errorf("allowed counter = %v, want 1", value)
		}
		value = testutil.ToFloat64(metrics.AuthzDecisionsTotal.WithLabelValues("member", "denied"))
		if value != 1 {
			t.Errorf("denied counter = %v, want 1", value)
		}
	})
}

func TestInvalidRoleReporter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	reporter := NewInvalidRoleReporter(logger, metrics)
	reporter.ReportInvalidRole(context.Background(), 7, "superadmin")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", entry["level"])
	}
	if entry["role"] != "superadmin" {
		t.Errorf("role = %v, want superadmin", entry["role"])
	}

	if value := testutil.ToFloat64(metrics.AuthzInvalidRolesTotal); value != 1 {
		t.Errorf("invalid role counter = %v, want 1", value)
	}
}
