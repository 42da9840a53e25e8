// Package integration combines circuit breaker and retry patterns for comprehensive
// fault tolerance in the StateTree runtime.
//
// This package provides ResilientExecutor which layers retry logic on top of
// circuit breaker protection, giving operations the benefits of both mechanisms:
// automatic retries for transient failures and fast-fail for persistent outages.
//
// # Execution Flow
//
// When executing an operation:
//
//  1. The retrier makes up to MaxAttempts attempts, with exponential backoff between them
//  2. Each attempt goes through the circuit breaker
//  3. If the circuit is open, that attempt fails at once with ErrCircuitBreakerOpen
//     without running the operation; the retrier retries it like any other error
//  4. Otherwise the operation runs and the circuit breaker records its success/failure
//
// # Creating Executors
//
// Create a custom executor with specific configuration:
//
//	cbConfig := resilience.CircuitBreakerConfig{
//	    MaxFailures: 5,
//	    Timeout:     30 * time.Second,
//	}
//	retryConfig := retry.RetryConfig{
//	    MaxAttempts:  3,
//	    InitialDelay: 100 * time.Millisecond,
//	}
//	executor := integration.NewResilientExecutor(cbConfig, retryConfig)
//
// # Executing Operations
//
// Wrap operations with combined protection:
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callExternalAPI(ctx)
//	})
//
// # Pre-configured Executors
//
// Global executors for common operation types:
//
//	// File system operations
//	err := integration.ExecuteFileSystemOperation(ctx, operation)
//
//	// Network/WebSocket operations
//	err := integration.ExecuteNetworkOperation(ctx, operation)
//
//	// Configuration loading
//	err := integration.ExecuteConfigOperation(ctx, operation)
//
// # Ad-hoc Execution
//
// For one-off operations with custom options:
//
//	err := integration.ExecuteResilient(ctx, operation,
//	    integration.ConfigureRetry(retryConfig),
//	    integration.ConfigureCircuitBreaker(cbConfig),
//	)
//
// # Disabling Mechanisms
//
// Build an executor with only one protection mechanism:
//
//	// Circuit breaker only, no retry
//	executor := integration.WithRetryDisabled(cbConfig)
//
//	// Retry only, no circuit breaker
//	executor := integration.WithCircuitBreakerDisabled(retryConfig)
//
// # Statistics
//
// Query the circuit breaker's statistics:
//
//	stats := executor.GetStats()
//	// Circuit breaker stats under circuit_breaker_* keys; the retrier keeps none
package integration
