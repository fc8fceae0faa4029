package manager

import (
	"errors"
	"fmt"
)

// Error taxonomy. Small unexported types with predicate helpers so the
// HTTP layer can map them to status codes without importing internals.

// modelNotFoundError: unknown catalog alias.
type modelNotFoundError struct{ alias string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.alias }

// IsModelNotFound reports whether err indicates an unknown model alias.
func IsModelNotFound(err error) bool {
	var t modelNotFoundError
	return errors.As(err, &t)
}

// budgetExceededError: load/swap rejected before any device allocation.
type budgetExceededError struct {
	alias       string
	requiredMB  int
	remainingMB int
}

func (e budgetExceededError) Error() string {
	return fmt.Sprintf("memory budget exceeded: %s needs %dMB, %dMB remaining", e.alias, e.requiredMB, e.remainingMB)
}

// IsBudgetExceeded reports whether err indicates a rejected load due to
// the memory ceiling.
func IsBudgetExceeded(err error) bool {
	var t budgetExceededError
	return errors.As(err, &t)
}

// loadFailureError: the engine failed to load the model.
type loadFailureError struct {
	alias string
	cause error
}

func (e loadFailureError) Error() string {
	return fmt.Sprintf("load failed for %s: %v", e.alias, e.cause)
}

func (e loadFailureError) Unwrap() error { return e.cause }

// IsLoadFailure reports whether err indicates an engine-level load error.
func IsLoadFailure(err error) bool {
	var t loadFailureError
	return errors.As(err, &t)
}

// unavailableError: no ready instance, or the instance is draining.
type unavailableError struct{ reason string }

func (e unavailableError) Error() string { return "service unavailable: " + e.reason }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(reason string) error { return unavailableError{reason: reason} }

// IsUnavailable reports whether err indicates no admittable instance.
func IsUnavailable(err error) bool {
	var t unavailableError
	return errors.As(err, &t)
}

// overloadedError: admission or queue-depth limit hit (maps to 429).
type overloadedError struct{ alias string }

func (e overloadedError) Error() string { return "overloaded: " + e.alias }

// IsOverloaded reports whether err indicates backpressure rejection.
func IsOverloaded(err error) bool {
	var t overloadedError
	return errors.As(err, &t)
}

// generationError: engine failure mid-request; instance state unaffected.
type generationError struct{ cause error }

func (e generationError) Error() string { return "generation failed: " + e.cause.Error() }

func (e generationError) Unwrap() error { return e.cause }

// IsGenerationError reports whether err is a per-request engine failure.
func IsGenerationError(err error) bool {
	var t generationError
	return errors.As(err, &t)
}

// swapConflictError: a later swap preempted this one.
type swapConflictError struct{ winner string }

func (e swapConflictError) Error() string {
	return "swap superseded by concurrent request for " + e.winner
}

// IsSwapConflict reports whether err indicates a superseded swap.
func IsSwapConflict(err error) bool {
	var t swapConflictError
	return errors.As(err, &t)
}

// alreadyResidentError: a plain load was issued while a different model is
// resident; the caller must swap (or unload) instead.
type alreadyResidentError struct{ resident string }

func (e alreadyResidentError) Error() string {
	return "model " + e.resident + " is resident; use swap"
}

// IsAlreadyResident reports whether err indicates a load that requires a
// swap.
func IsAlreadyResident(err error) bool {
	var t alreadyResidentError
	return errors.As(err, &t)
}
