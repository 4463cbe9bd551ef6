// Package resilience retries transient output failures with exponential
// backoff and jitter.
//
//	err := resilience.RetryFunc(ctx, cfg, func() error {
//	    return conn.Publish(subject, data)
//	})
//
// RetryConfig loads from configuration; RetryIf and OnRetry are set in code.
package resilience
