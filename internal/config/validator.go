package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "trap.max_pick_angle")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// resourceNameRegex validates shared resource file names. Names become files
// in the runtime directory, so path separators and leading dots are rejected.
var resourceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateRuntime()...)
	errors = append(errors, c.validateTrap()...)
	errors = append(errors, c.validateTreasure()...)
	errors = append(errors, c.validateLever()...)
	errors = append(errors, c.validateLifecycle()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateRuntime() []ValidationError {
	var errors []ValidationError

	names := map[string]string{
		"runtime.block_name":   c.Runtime.BlockName,
		"runtime.lever_a_name": c.Runtime.LeverAName,
		"runtime.lever_b_name": c.Runtime.LeverBName,
	}
	for field, name := range names {
		if !resourceNameRegex.MatchString(name) {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   name,
				Message: "must be a plain file name (alphanumeric, dot, dash, underscore)",
			})
		}
	}

	if c.Runtime.LeverAName == c.Runtime.LeverBName {
		errors = append(errors, ValidationError{
			Field:   "runtime.lever_b_name",
			Value:   c.Runtime.LeverBName,
			Message: "levers must have distinct names",
		})
	}

	return errors
}

func (c *Config) validateTrap() []ValidationError {
	var errors []ValidationError

	if c.Trap.MaxPickAngle <= 0 {
		errors = append(errors, ValidationError{
			Field:   "trap.max_pick_angle",
			Value:   c.Trap.MaxPickAngle,
			Message: "must be positive",
		})
	}
	if c.Trap.SecondsToPick <= 0.5 {
		errors = append(errors, ValidationError{
			Field:   "trap.seconds_to_pick",
			Value:   c.Trap.SecondsToPick,
			Message: "must exceed the half-second write reserve",
		})
	}
	if c.Trap.PollIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "trap.poll_interval_ms",
			Value:   c.Trap.PollIntervalMs,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateTreasure() []ValidationError {
	var errors []ValidationError

	if c.Treasure.AvailableSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "treasure.available_seconds",
			Value:   c.Treasure.AvailableSeconds,
			Message: "must be positive",
		})
	}
	if c.Treasure.PollIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "treasure.poll_interval_ms",
			Value:   c.Treasure.PollIntervalMs,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateLever() []ValidationError {
	var errors []ValidationError

	if c.Lever.HoldPollIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "lever.hold_poll_interval_ms",
			Value:   c.Lever.HoldPollIntervalMs,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateLifecycle() []ValidationError {
	var errors []ValidationError

	if c.Lifecycle.SpawnGraceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "lifecycle.spawn_grace_ms",
			Value:   c.Lifecycle.SpawnGraceMs,
			Message: "must not be negative",
		})
	}
	if c.Lifecycle.ShutdownGraceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "lifecycle.shutdown_grace_ms",
			Value:   c.Lifecycle.ShutdownGraceMs,
			Message: "must not be negative",
		})
	}
	if c.Lifecycle.AttachRetryMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "lifecycle.attach_retry_ms",
			Value:   c.Lifecycle.AttachRetryMs,
			Message: "must be positive",
		})
	}
	if c.Lifecycle.AttachTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "lifecycle.attach_timeout_seconds",
			Value:   c.Lifecycle.AttachTimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
