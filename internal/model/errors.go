package model

import (
	"errors"
	"fmt"
)

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrNotFound is returned when a required profile or post is absent.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller does not own the post it targets.
// It is never folded into ErrNotFound.
var ErrForbidden = errors.New("caller does not own this resource")

// ErrAlreadyExists is returned when creating a profile for a user who has one.
var ErrAlreadyExists = errors.New("already exists")

// ErrVersionConflict is returned when a write raced a concurrent modification.
var ErrVersionConflict = errors.New("concurrent modification detected")

// ErrPremiumRequired is returned when a premium-only field is written by a
// profile without an active PREMIUM subscription.
var ErrPremiumRequired = errors.New("applicant search profile is a premium feature")

// ─── Structured errors ───────────────────────────────────────────────────────

// ValidationError describes a rejected input. It is raised before any state
// changes.
type ValidationError struct {
	Field      string
	Constraint string
	Msg        string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Invalid builds a ValidationError.
func Invalid(field, constraint, msg string) *ValidationError {
	return &ValidationError{Field: field, Constraint: constraint, Msg: msg}
}

// ReconcileError marks an inbound event that could not be applied, such as a
// payment for an unknown account. Retrying the event is safe.
type ReconcileError struct {
	Event string
	Key   string
	Err   error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconcile %s for %q: %v", e.Event, e.Key, e.Err)
}

func (e *ReconcileError) Unwrap() error { return e.Err }

// DispatchError wraps a failure to hand work to an upstream collaborator.
type DispatchError struct {
	Target string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %s: %v", e.Target, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
