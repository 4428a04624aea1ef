package config

import (
	"sync"
)

// RuntimeConfig stores configuration set at runtime via CLI flags.
// These values are not persisted to config files.
type RuntimeConfig struct {
	mu      sync.RWMutex
	verbose bool
}

var globalRuntime = &RuntimeConfig{}

// SetVerbose enables or disables per-event logging.
func SetVerbose(v bool) {
	globalRuntime.mu.Lock()
	defer globalRuntime.mu.Unlock()
	globalRuntime.verbose = v
}

// IsVerbose returns whether per-event logging is enabled.
func IsVerbose() bool {
	globalRuntime.mu.RLock()
	defer globalRuntime.mu.RUnlock()
	return globalRuntime.verbose
}
