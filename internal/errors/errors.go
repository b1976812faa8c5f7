// Package errors provides centralized error definitions and error handling
// utilities for the oubliette codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - ResourceError: errors acquiring or releasing shared OS resources
//     (the shared memory block, the lever lock files)
//   - ProtocolError: errors in the shared-state coordination protocol
//     (unexpected field combinations, lost races)
//
// Semantic errors represent common error conditions:
//   - TimeoutError: a challenge episode or collection window expired
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewResourceError("map dungeon block", errors.ErrResourceNotFound)
//	err := errors.NewTimeoutError("trap episode", deadline)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrResourceNotFound) { ... }
//
//	var resErr *errors.ResourceError
//	if errors.As(err, &resErr) { ... }
//
//	if errors.IsFatal(err) { ... }
//	if errors.IsRetryable(err) { ... }
//
// # Error Classification
//
// Resource-acquisition failures are fatal: the failing process releases what
// it holds and exits non-zero. Protocol races and timeouts are non-fatal: the
// process logs, abandons the current episode, and waits for the next event.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Shared-resource sentinel errors
var (
	// ErrResourceExists indicates a named resource already exists in the
	// system namespace when exclusive creation was requested.
	ErrResourceExists = New("resource already exists")
	// ErrResourceNotFound indicates a named resource has not been created yet.
	ErrResourceNotFound = New("resource not found")
	// ErrPermissionDenied indicates the process may not access the resource.
	ErrPermissionDenied = New("permission denied")
	// ErrOutOfResources indicates the system refused to allocate the resource.
	ErrOutOfResources = New("out of system resources")
	// ErrResourceClosed indicates an operation on an already-detached handle.
	ErrResourceClosed = New("resource handle closed")
)

// Coordination sentinel errors
var (
	// ErrLeverHeld indicates a non-blocking lever grab lost to another holder.
	ErrLeverHeld = New("lever held by another process")
	// ErrNotRunning indicates the dungeon finished while an operation was in flight.
	ErrNotRunning = New("dungeon is not running")
	// ErrShutdown indicates the process observed its own shutdown request.
	ErrShutdown = New("shutdown requested")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Domain Error Types
// -----------------------------------------------------------------------------

// ResourceError represents a failure acquiring, using, or releasing a shared
// OS resource (shared memory block, lever lock file, signal registration).
type ResourceError struct {
	Op       string // operation that failed, e.g. "create shared block"
	Resource string // resource name, if known
	Err      error  // underlying error
}

// NewResourceError creates a ResourceError wrapping the underlying cause.
func NewResourceError(op string, err error) *ResourceError {
	return &ResourceError{Op: op, Err: err}
}

// WithResource attaches the resource name for diagnostics.
func (e *ResourceError) WithResource(name string) *ResourceError {
	e.Resource = name
	return e
}

func (e *ResourceError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Resource, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResourceError) Unwrap() error { return e.Err }

// ProtocolError represents an unexpected shared-state observation: a field
// combination the handler does not recognize, or a race lost to another
// process. Protocol errors are never fatal.
type ProtocolError struct {
	Op      string // operation in progress
	Details string // what was observed
	Err     error  // underlying sentinel, if any
}

// NewProtocolError creates a ProtocolError.
func NewProtocolError(op, details string, err error) *ProtocolError {
	return &ProtocolError{Op: op, Details: details, Err: err}
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Details)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error { return e.Err }

// TimeoutError represents an expired episode deadline or collection window.
type TimeoutError struct {
	Op       string        // what timed out, e.g. "treasure collection"
	Deadline time.Duration // the budget that was exceeded
}

// NewTimeoutError creates a TimeoutError.
func NewTimeoutError(op string, deadline time.Duration) *TimeoutError {
	return &TimeoutError{Op: op, Deadline: deadline}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Deadline)
}

// Unwrap allows errors.Is(err, ErrTimeout) on any TimeoutError.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsFatal reports whether the error should terminate the process. Only
// resource-acquisition failures are fatal; everything else is best-effort.
func IsFatal(err error) bool {
	var resErr *ResourceError
	return As(err, &resErr)
}

// IsRetryable reports whether the operation may succeed if attempted again.
// Attaching to a not-yet-created resource is the canonical retryable case:
// a worker may start before the orchestrator has finished creating the block.
func IsRetryable(err error) bool {
	return Is(err, ErrResourceNotFound) || Is(err, ErrLeverHeld)
}

// IsTimeout reports whether the error represents an expired deadline.
func IsTimeout(err error) bool {
	return Is(err, ErrTimeout)
}
