// Package errors provides centralized error definitions and error handling
// utilities for the scalesim codebase. It defines domain-specific errors,
// error constructors with context wrapping, and classification helpers.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - PoolError: errors related to resource pool mutation
//   - EngineError: errors related to the simulation engine boundary
//   - SampleError: errors related to utilization sampling
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewPoolError("remove rejected", errors.ErrVMNotFound).WithVM(7)
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrPoolFloor) { ... }
//
//	// Use classification helpers
//	if errors.IsTransient(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Transient: errors that degrade a single control cycle but never abort it
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
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

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Pool-related sentinel errors
var (
	// ErrVMNotFound indicates that a VM ID is unknown to the pool.
	ErrVMNotFound = New("vm not found")
	// ErrPoolFloor indicates that a removal would drop the pool below its
	// minimum size.
	ErrPoolFloor = New("pool at minimum size")
)

// Sampling-related sentinel errors
var (
	// ErrSampleUnavailable indicates a transient failure to read a VM's
	// utilization. The controller degrades the affected VM to a no-op for
	// the current cycle.
	ErrSampleUnavailable = New("utilization sample unavailable")
)

// Engine-related sentinel errors
var (
	// ErrEngineSubmit indicates that the simulation engine rejected a newly
	// created VM, e.g. host capacity exhausted.
	ErrEngineSubmit = New("engine rejected vm submission")
	// ErrEngineRemoval indicates that the simulation engine failed to
	// acknowledge a VM removal request.
	ErrEngineRemoval = New("engine removal not acknowledged")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	transient bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsTransient returns whether the error is transient.
func (e *baseError) IsTransient() bool {
	return e.transient
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// PoolError represents errors related to resource pool mutation.
//
// Example:
//
//	err := errors.NewPoolError("remove rejected", errors.ErrPoolFloor).WithVM(3)
//	fmt.Println(err) // "pool error [vm=3]: remove rejected: pool at minimum size"
type PoolError struct {
	baseError
	VMID int
}

// NewPoolError creates a new PoolError. The VM ID defaults to -1 (unset).
func NewPoolError(message string, cause error) *PoolError {
	return &PoolError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityWarning,
		},
		VMID: -1,
	}
}

// WithVM adds the affected VM ID to the error context.
func (e *PoolError) WithVM(id int) *PoolError {
	e.VMID = id
	return e
}

// Error returns the formatted error message.
func (e *PoolError) Error() string {
	prefix := "pool error"
	if e.VMID >= 0 {
		prefix = fmt.Sprintf("pool error [vm=%d]", e.VMID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *PoolError) Is(target error) bool {
	if _, ok := target.(*PoolError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// EngineError represents errors crossing the simulation engine boundary.
type EngineError struct {
	baseError
	Op   string // e.g. "submit", "remove"
	VMID int
}

// NewEngineError creates a new EngineError for the given engine operation.
func NewEngineError(op, message string, cause error) *EngineError {
	return &EngineError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
		Op:   op,
		VMID: -1,
	}
}

// WithVM adds the affected VM ID to the error context.
func (e *EngineError) WithVM(id int) *EngineError {
	e.VMID = id
	return e
}

// Error returns the formatted error message.
func (e *EngineError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.VMID >= 0 {
		parts = append(parts, fmt.Sprintf("vm=%d", e.VMID))
	}

	prefix := "engine error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("engine error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *EngineError) Is(target error) bool {
	if _, ok := target.(*EngineError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// SampleError represents a failed utilization sample for a single VM.
// Sample errors are always transient: the controller converts them to
// per-VM no-ops and never aborts the cycle.
type SampleError struct {
	baseError
	VMID int
}

// NewSampleError creates a new SampleError for the given VM.
func NewSampleError(vmID int, cause error) *SampleError {
	if cause == nil {
		cause = ErrSampleUnavailable
	}
	return &SampleError{
		baseError: baseError{
			message:   "sample failed",
			cause:     cause,
			severity:  SeverityInfo,
			transient: true,
		},
		VMID: vmID,
	}
}

// Error returns the formatted error message.
func (e *SampleError) Error() string {
	return fmt.Sprintf("sample error [vm=%d]: %v", e.VMID, e.cause)
}

// Is checks if this error matches the target.
func (e *SampleError) Is(target error) bool {
	if _, ok := target.(*SampleError); ok {
		return true
	}
	if target == ErrSampleUnavailable {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// transienter is implemented by errors that know whether they are transient.
type transienter interface {
	IsTransient() bool
}

// IsTransient reports whether err is a transient error that should degrade
// to a no-op rather than fail the control cycle.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSampleUnavailable) || errors.Is(err, ErrTimeout) {
		return true
	}
	var t transienter
	if errors.As(err, &t) {
		return t.IsTransient()
	}
	return false
}

// SeverityOf returns the severity of err, defaulting to SeverityError for
// errors that don't carry one.
func SeverityOf(err error) Severity {
	type severer interface {
		Severity() Severity
	}
	var s severer
	if errors.As(err, &s) {
		return s.Severity()
	}
	return SeverityError
}
