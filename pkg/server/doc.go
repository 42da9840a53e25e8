// Package server provides the ambient HTTP/operational surface shared by
// every StateTree process: health and readiness probes, Prometheus metrics,
// rate limiting, circuit breakers, request timeouts, and pprof profiling.
//
// It deliberately does not own Land lifecycle, session routing, or wire
// encoding — those live in pkg/realm, pkg/wireproto/pkg/wirecodec, and
// pkg/wsgateway. This package is wired in alongside them by cmd/server to
// expose the operational endpoints every deployment needs regardless of
// which Lands are registered.
//
// # Operational endpoints
//
//   - Health checks at /health, /ready, /live
//   - Prometheus metrics at /metrics
//   - Request rate limiting with configurable thresholds
//   - Pprof profiling when enabled
//
// # Thread safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package server
