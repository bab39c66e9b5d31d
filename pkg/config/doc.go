// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	TASKFOLIO_HOST="0.0.0.0"
//	TASKFOLIO_PORT="8080"
//	TASKFOLIO_HEALTH_PORT="9090"
//	TASKFOLIO_READ_TIMEOUT="15s"
//	TASKFOLIO_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	TASKFOLIO_POSTGRES_URL="postgres://localhost/taskfolio"
//	TASKFOLIO_POSTGRES_MAX_CONNS="25"
//	TASKFOLIO_POSTGRES_IDLE_CONNS="5"
//	TASKFOLIO_POSTGRES_CONN_LIFETIME="30m"
//
// Redis settings (rate limiting):
//
//	TASKFOLIO_REDIS_URL="localhost:6379"
//	TASKFOLIO_REDIS_POOL_SIZE="10"
//
// Observability settings:
//
//	TASKFOLIO_LOG_LEVEL="info"  # debug, info, warn, error
//	TASKFOLIO_METRICS_ENABLED="true"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/observability: Uses observability configuration
package config
