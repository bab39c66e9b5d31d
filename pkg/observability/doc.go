// Package observability provides structured logging, Prometheus metrics,
// OTLP tracing, health checks, and graceful shutdown.
//
// # Structured Logging
//
// Loggers emit JSON via slog:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", id).Info("token created")
//
// Request-scoped loggers travel through the context; FromContext annotates
// them with the request id when one is present.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.HTTPRequestsTotal.WithLabelValues("GET", "/projects", "200").Inc()
//
// # Authorization Sinks
//
// DecisionSink and InvalidRoleReporter adapt the logger and metrics to the
// authz package's DecisionLogger and ErrorReporter interfaces. Every
// allow/deny decision is logged at info level and counted by role and
// outcome; unrecognized role values read from the store are logged at error
// level and counted separately.
//
// # Tracing
//
// InitTracing installs a global OTLP tracer provider when enabled; the HTTP
// layer picks it up through otelhttp. When disabled it returns nil and the
// instrumentation stays a no-op.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	observability.RegisterHealthRoutes(mux, checker)
//
// A PostgreSQL failure makes the service unhealthy. A Redis failure only
// degrades it, since rate limiting fails open.
package observability
