// Package config provides configuration management for the StateTree runtime.
//
// This package handles environment variable loading with type-safe parsing,
// applies secure production defaults, and performs extensive validation of
// all configuration values.
//
// # Loading Configuration
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Environment Variables
//
// Server settings:
//   - SERVER_PORT: HTTP/WebSocket port (default: 8080)
//   - WEB_DIR: Static file directory (default: "./web")
//   - LOG_LEVEL: Logging verbosity (default: "info")
//
// Timeouts:
//   - SESSION_TIMEOUT: Unjoined session inactivity timeout (default: 30m)
//   - REQUEST_TIMEOUT: Per-op processing timeout (default: 30s)
//
// Security:
//   - ENABLE_DEV_MODE: Enable development mode (default: true)
//   - ALLOWED_ORIGINS: CORS allowed origins (comma-separated)
//   - MAX_REQUEST_SIZE: Maximum action/event payload size (default: 1MB)
//
// Land runtime:
//   - TICK_INTERVAL: Default period between Tick ops (default: 100ms)
//   - IDLE_DESTROY_TICKS: Consecutive empty ticks before a Land is destroyed (default: 300)
//   - OP_QUEUE_SIZE: Per-Land pending op buffer size (default: 256)
//   - SLOW_CONSUMER_HIGH_WATER_MARK: Outbound queue depth before a session is closed (default: 500)
//   - DEFAULT_ENCODING: Wire codec used absent session negotiation (default: "jsonObject")
//
// Rate limiting:
//   - RATE_LIMIT_ENABLED: Enable per-client-IP HTTP request rate limiting (default: false)
//   - RATE_LIMIT_REQUESTS_PER_SECOND: Requests per second (default: 20)
//   - RATE_LIMIT_BURST: Burst allowance (default: 40)
//
// Retry policy:
//   - RETRY_MAX_ATTEMPTS: Maximum retries (default: 3)
//   - RETRY_INITIAL_DELAY: First retry delay (default: 100ms)
//   - RETRY_MAX_DELAY: Maximum retry delay (default: 30s)
//   - RETRY_BACKOFF_MULTIPLIER: Backoff factor (default: 2.0)
//
// Reevaluation recording:
//   - REEVALUATION_RECORDS_DIR: Directory for recorded op logs (default: "./reevaluation-records")
//   - ENABLE_REEVALUATION_RECORDING: Turn on recording (default: false)
//
// Schema-driven land:
//   - LAND_SCHEMA_PATH: YAML field schema for an additional generic land,
//     registered alongside the hand-written ones (default: "", disabled)
//   - DATA_DIR: Directory for resilience-protected FileStore persistence,
//     such as periodic leaderboard snapshots (default: "./data")
//
// # Schema-Driven Lands
//
// LoadLandSchema parses a YAML field schema; BuildFieldTable converts it
// into a statefield.Table; SchemaDefinition wraps that table in a
// land.Definition whose state is a generic SchemaState and whose actions
// (setField, setMySlice) are schema-driven rather than hand-written:
//
//	schema, err := config.LoadLandSchema("schemas/noticeboard.yaml")
//	def, err := config.SchemaDefinition(schema)
//	manager.Register(def)
//
// # Validation
//
// All configuration values are validated on load:
//   - Port must be in valid range (1-65535)
//   - Timeouts must meet minimum requirements
//   - Rate limit values must be positive when enabled
//   - Retry configuration must be sensible when enabled
//   - Tick interval, idle-destroy window, op queue size, and default
//     encoding must be sane Land-runtime values
//
// # CORS Support
//
// Use OriginAllowed to check WebSocket origins:
//
//	if cfg.OriginAllowed(origin) {
//	    // Allow connection
//	}
//
// In development mode (EnableDevMode=true), all origins are allowed.
//
// # Retry Configuration
//
// GetRetryConfig returns a retry.RetryConfig that can be used directly
// with the retry package:
//
//	retryConfig := cfg.GetRetryConfig()
//	retrier := retry.NewRetrier(retryConfig)
package config
