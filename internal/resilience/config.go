package resilience

import "time"

// RetryFromSettings builds a RetryConfig from the fetch.max_retries setting.
// maxRetries counts retries after the first attempt; negative values keep the
// default.
func RetryFromSettings(maxRetries int, source string) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxRetries >= 0 {
		cfg.MaxAttempts = maxRetries + 1
	}
	cfg.OnRetry = RetryLogger(source)
	return cfg
}

// CircuitFromSettings builds a CircuitBreakerConfig. Non-positive values keep
// the defaults.
func CircuitFromSettings(failureThreshold, resetTimeoutSecs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}
