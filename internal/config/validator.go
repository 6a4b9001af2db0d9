package config

import (
	"fmt"
	"strings"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// StorageTypes lists the supported storage backends
var StorageTypes = []string{"memory", "sqlite", "bolt"}

// Validate checks the configuration for values the components cannot run with
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	if c.Resolver.MaxDepth < 1 {
		result.AddError("resolver.max_depth must be at least 1 (got %d)", c.Resolver.MaxDepth)
	} else if c.Resolver.MaxDepth > 256 {
		result.AddWarning("resolver.max_depth %d allows very deep result trees", c.Resolver.MaxDepth)
	}
	if c.Resolver.Parallelism < 1 {
		result.AddError("resolver.parallelism must be at least 1 (got %d)", c.Resolver.Parallelism)
	}

	known := false
	for _, t := range StorageTypes {
		if c.Storage.Type == t {
			known = true
			break
		}
	}
	if !known {
		result.AddError("storage.type %q is not one of %s", c.Storage.Type, strings.Join(StorageTypes, ", "))
	} else if c.Storage.Type != "memory" && c.Storage.Path == "" {
		result.AddError("storage.path is required for %s storage", c.Storage.Type)
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		result.AddError("cache.ttl must be positive when the cache is enabled")
	}
	if c.Cache.Enabled && c.Storage.Type == "memory" {
		result.AddWarning("cache.enabled has no benefit with memory storage")
	}

	if c.Gateway.RateLimit < 0 {
		result.AddError("gateway.rate_limit must not be negative (got %v)", c.Gateway.RateLimit)
	}
	if c.Gateway.RateLimit > 0 && c.Gateway.Burst < 1 {
		result.AddError("gateway.burst must be at least 1 when rate limiting")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result.AddError("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}

	return result
}
