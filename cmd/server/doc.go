// Package main implements the StateTree server application.
//
// This is the process entry point: it loads configuration, wires the Land
// registry (pkg/realm) to its websocket transport (pkg/wsgateway), registers
// every known Land definition, and serves both the realtime endpoint and the
// ambient operational surface (pkg/server's health/metrics/rate-limiting).
//
// # Architecture
//
//   - Configuration loading and validation (via pkg/config)
//   - Logging setup and initialization
//   - Land registry and websocket gateway construction, with the
//     construction-order cycle between realm.Manager and wsgateway.Gateway
//     broken via Gateway.SetManager
//   - Land definition registration (pkg/landdemo's cookie-clicker, the
//     worked example; additional Lands register the same way)
//   - HTTP server lifecycle management with graceful shutdown
//   - Signal handling for SIGINT and SIGTERM
//
// # Startup Sequence
//
// 1. Load configuration from environment variables with secure defaults
// 2. Configure logging based on LOG_LEVEL setting
// 3. Build the realm.Manager, wsgateway.Gateway, and ambient HTTP surface
// 4. Register Land definitions with the Manager
// 5. Start listening for connections
// 6. Handle shutdown signals gracefully (see Graceful Shutdown below)
//
// # Environment Variables
//
// The server supports the following environment variables (see pkg/config
// for the full list and defaults):
//
//   - SERVER_PORT: HTTP server port (default: 8080)
//   - LOG_LEVEL: Logging verbosity (debug, info, warn, error; default: info)
//   - ENABLE_DEV_MODE: Development mode flag, bypasses origin checking
//   - TICK_INTERVAL, IDLE_DESTROY_TICKS: Land runtime defaults
//   - DEFAULT_ENCODING: wire codec negotiated when a session specifies none
//   - ENABLE_REEVALUATION_RECORDING, REEVALUATION_RECORDS_DIR: replay recording
//
// # Usage
//
// Run the server with default settings:
//
//	./server
//
// Run with custom port and debug logging:
//
//	SERVER_PORT=9000 LOG_LEVEL=debug ./server
//
// # Graceful Shutdown
//
// The server handles SIGINT (Ctrl+C) and SIGTERM signals gracefully:
//
// 1. Signal health checks that shutdown has begun (HealthDeps.Done)
// 2. Stop accepting new HTTP connections and wait for in-flight requests,
//    bounded by ShutdownTimeout
// 3. Close the rate limiter's cleanup loop
// 4. Wait ShutdownGracePeriod, or until ShutdownTimeout runs out if that
//    comes first, then exit
//
// Live Land Keepers are not stopped one by one during shutdown: their op
// queues are not drained and afterFinalize hooks do not run.
package main
