package observability

import (
	"context"

	"github.com/taskfolio/taskfolio/pkg/authz"
)

// DecisionSink records authorization decisions to the structured log and,
// when metrics are configured, to Prometheus counters. It implements
// authz.DecisionLogger.
type DecisionSink struct {
	logger  *Logger
	metrics *Metrics
}

// NewDecisionSink creates a decision sink. metrics may be nil.
func NewDecisionSink(logger *Logger, metrics *Metrics) *DecisionSink {
	return &DecisionSink{logger: logger, metrics: metrics}
}

// LogDecision records a single allow/deny decision. Denials log at info,
// not error: a denial is a correct outcome, not a fault.
func (s *DecisionSink) LogDecision(ctx context.Context, userID int64, d authz.Decision) {
	logger := s.logger
	if logger == nil {
		logger = FromContext(ctx)
	}
	logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"role":    string(d.Role),
		"allowed": d.Allowed,
		"reason":  d.Reason,
	}).Info("authorization decision")

	if s.metrics != nil {
		outcome := "denied"
		if d.Allowed {
			outcome = "allowed"
		}
		s.metrics.AuthzDecisionsTotal.WithLabelValues(string(d.Role), outcome).Inc()
	}
}

// InvalidRoleReporter surfaces corrupt role values read from the store. It
// implements authz.ErrorReporter.
type InvalidRoleReporter struct {
	logger  *Logger
	metrics *Metrics
}

// NewInvalidRoleReporter creates a reporter. metrics may be nil.
func NewInvalidRoleReporter(logger *Logger, metrics *Metrics) *InvalidRoleReporter {
	return &InvalidRoleReporter{logger: logger, metrics: metrics}
}

// ReportInvalidRole logs an unrecognized role at error level. This is a
// data-integrity signal, not a user fault.
func (r *InvalidRoleReporter) ReportInvalidRole(ctx context.Context, userID int64, role string) {
	logger := r.logger
	if logger == nil {
		logger = FromContext(ctx)
	}
	logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"role":    role,
	}).Error("unrecognized role value in store")

	if r.metrics != nil {
		r.metrics.AuthzInvalidRolesTotal.Inc()
	}
}
