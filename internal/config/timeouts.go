package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	Create            time.Duration // Timeout for each provider create call, including retries
	Delete            time.Duration // Timeout for each provider delete call, including retries
	InstanceRunning   time.Duration // Timeout for launched instances to reach running
	RetryMaxAttempts  int           // Maximum number of retry attempts
	RetryInitialDelay time.Duration // Initial delay between retries
	RetryMaxDelay     time.Duration // Upper bound for the backoff delay
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - STACKCTL_TIMEOUT_CREATE (default: 5m)
//   - STACKCTL_TIMEOUT_DELETE (default: 5m)
//   - STACKCTL_TIMEOUT_INSTANCE_RUNNING (default: 10m)
//   - STACKCTL_RETRY_MAX_ATTEMPTS (default: 5)
//   - STACKCTL_RETRY_INITIAL_DELAY (default: 1s)
//   - STACKCTL_RETRY_MAX_DELAY (default: 30s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Create:            parseDuration("STACKCTL_TIMEOUT_CREATE", 5*time.Minute),
		Delete:            parseDuration("STACKCTL_TIMEOUT_DELETE", 5*time.Minute),
		InstanceRunning:   parseDuration("STACKCTL_TIMEOUT_INSTANCE_RUNNING", 10*time.Minute),
		RetryMaxAttempts:  parseInt("STACKCTL_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("STACKCTL_RETRY_INITIAL_DELAY", 1*time.Second),
		RetryMaxDelay:     parseDuration("STACKCTL_RETRY_MAX_DELAY", 30*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
