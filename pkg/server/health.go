package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"statetree/pkg/config"
	"statetree/pkg/realm"

	"github.com/sirupsen/logrus"
)

// HealthStatus represents the overall health status of the server
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// CheckResult represents the result of a single health check
type CheckResult struct {
	Name     string        `json:"name"`
	Status   HealthStatus  `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	Details  interface{}   `json:"details,omitempty"`
}

// HealthResponse represents the complete health check response
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Checks    []CheckResult `json:"checks"`
	Version   string        `json:"version,omitempty"`
}

// HealthDeps bundles the collaborators a HealthChecker inspects. Holding
// them as independent fields lets the checker be built and tested without
// any concrete HTTP/WebSocket front-end wired up yet.
type HealthDeps struct {
	Realm   *realm.Manager
	Config  *config.Config
	Metrics *Metrics
	Done    <-chan struct{} // closed once the server begins shutdown
}

// HealthChecker manages health checks for various system components
type HealthChecker struct {
	checks map[string]func(context.Context) error
	deps   HealthDeps
}

// NewHealthChecker creates a new health checker instance
func NewHealthChecker(deps HealthDeps) *HealthChecker {
	hc := &HealthChecker{
		checks: make(map[string]func(context.Context) error),
		deps:   deps,
	}

	hc.RegisterCheck("server", hc.checkServer)
	hc.RegisterCheck("realm", hc.checkRealm)
	hc.RegisterCheck("configuration", hc.checkConfiguration)
	hc.RegisterCheck("circuit_breakers", hc.checkCircuitBreakers)
	hc.RegisterCheck("metrics_system", hc.checkMetricsSystem)

	return hc
}

// RegisterCheck adds a new health check with the given name
func (hc *HealthChecker) RegisterCheck(name string, check func(context.Context) error) {
	hc.checks[name] = check
}

// RunHealthChecks executes all registered health checks and returns the results
func (hc *HealthChecker) RunHealthChecks(ctx context.Context) HealthResponse {
	start := time.Now()
	response := HealthResponse{
		Timestamp: start,
		Checks:    make([]CheckResult, 0, len(hc.checks)),
		Version:   "1.0.0",
	}

	overallStatus := HealthStatusHealthy

	for name, check := range hc.checks {
		checkStart := time.Now()
		result := CheckResult{
			Name:     name,
			Duration: 0,
			Status:   HealthStatusHealthy,
		}

		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := check(checkCtx)
		cancel()

		result.Duration = time.Since(checkStart)

		if err != nil {
			result.Status = HealthStatusUnhealthy
			result.Error = err.Error()
			overallStatus = HealthStatusUnhealthy

			if hc.deps.Metrics != nil {
				hc.deps.Metrics.RecordHealthCheck(name, "failure")
			}

			logrus.WithFields(logrus.Fields{
				"check":    name,
				"duration": result.Duration,
				"error":    err,
			}).Error("health check failed")
		} else {
			if hc.deps.Metrics != nil {
				hc.deps.Metrics.RecordHealthCheck(name, "success")
			}

			logrus.WithFields(logrus.Fields{
				"check":    name,
				"duration": result.Duration,
			}).Debug("health check passed")
		}

		response.Checks = append(response.Checks, result)
	}

	response.Status = overallStatus
	response.Duration = time.Since(start)

	return response
}

// HealthHandler serves the full health check response.
func (hc *HealthChecker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		ctx = context.WithValue(ctx, requestIDContextKey{}, reqID)
	}

	response := hc.RunHealthChecks(ctx)

	var httpStatus int
	switch response.Status {
	case HealthStatusHealthy:
		httpStatus = http.StatusOK
	case HealthStatusDegraded:
		httpStatus = http.StatusOK
	case HealthStatusUnhealthy:
		httpStatus = http.StatusServiceUnavailable
	default:
		httpStatus = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logrus.WithError(err).Error("failed to encode health response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ReadinessHandler handles Kubernetes-style readiness probes.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	response := hc.RunHealthChecks(ctx)

	if response.Status == HealthStatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Not Ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

// LivenessHandler handles basic server-availability probes.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Alive"))
}

type requestIDContextKey struct{}

func (hc *HealthChecker) checkServer(ctx context.Context) error {
	if hc.deps.Done == nil {
		return nil
	}
	select {
	case <-hc.deps.Done:
		return fmt.Errorf("server is shutting down")
	default:
		return nil
	}
}

func (hc *HealthChecker) checkRealm(ctx context.Context) error {
	if hc.deps.Realm == nil {
		return fmt.Errorf("realm manager is not initialized")
	}
	// Enumerate should never panic or block; its success is the check.
	_ = hc.deps.Realm.Enumerate()
	return nil
}

func (hc *HealthChecker) checkConfiguration(ctx context.Context) error {
	if hc.deps.Config == nil {
		return fmt.Errorf("configuration is not initialized")
	}
	if hc.deps.Config.ServerPort == 0 {
		return fmt.Errorf("server port not configured")
	}
	return nil
}

func (hc *HealthChecker) checkCircuitBreakers(ctx context.Context) error {
	cbManager := GetCircuitBreakerManager()
	if cbManager == nil {
		return fmt.Errorf("circuit breaker manager is not initialized")
	}
	stats := cbManager.GetAllStats()
	if stats == nil {
		return fmt.Errorf("unable to retrieve circuit breaker statistics")
	}
	return nil
}

func (hc *HealthChecker) checkMetricsSystem(ctx context.Context) error {
	if hc.deps.Metrics == nil {
		return fmt.Errorf("metrics system is not initialized")
	}
	return nil
}
