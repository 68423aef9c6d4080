// Package config loads the stackctl configuration.
//
// Settings come from a YAML file (stackctl.yaml, found via --config or by
// walking up from the working directory). Timeouts and retry budgets of
// provider calls are read from STACKCTL_TIMEOUT_* and STACKCTL_RETRY_*
// environment variables, see [LoadTimeouts].
package config
