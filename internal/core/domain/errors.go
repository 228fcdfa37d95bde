package domain

import (
	"errors"
	"fmt"
)

// ============================================================================
// Error Kinds
// ============================================================================

// Every error returned by the core services wraps exactly one of these kinds.
// Transport adapters switch on the kind with errors.Is.
var (
	ErrValidation         = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrNotAuthenticated   = errors.New("you must be logged in to access this resource")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrIO                 = errors.New("storage failure")

	// ErrPartialFailure marks a transition whose rows were committed but whose
	// follow-up filesystem step failed. Operators need to reconcile by hand.
	ErrPartialFailure = errors.New("partial failure")
)

// ============================================================================
// Deployment Errors
// ============================================================================

var (
	ErrDeploymentNotFound = fmt.Errorf("deployment %w", ErrNotFound)
	ErrNameConflict       = fmt.Errorf("%w: a deployment with this name already exists", ErrConflict)
	ErrSubdomainConflict  = fmt.Errorf("%w: a deployment with this subdomain already exists", ErrConflict)
	ErrInvalidLookupField = fmt.Errorf("%w: lookupField must be one of id, name, subdomain", ErrValidation)
)

// ============================================================================
// Version Errors
// ============================================================================

var (
	ErrVersionNotFound = fmt.Errorf("version %w", ErrNotFound)
	ErrVersionConflict = fmt.Errorf("%w: the version name must be unique for this deployment", ErrConflict)
)

// ============================================================================
// Archive Errors
// ============================================================================

var (
	ErrMissingArchive     = fmt.Errorf("%w: an archive file is required", ErrValidation)
	ErrUnsupportedArchive = fmt.Errorf("%w: archive must be a zip, tar or tar.gz file", ErrValidation)
	ErrUnsafeArchivePath  = fmt.Errorf("%w: archive entry escapes the destination directory", ErrValidation)
)

// ============================================================================
// Auth Errors
// ============================================================================

var (
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrUsernameConflict   = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrMissingCredentials = fmt.Errorf("%w: you must supply both a username and password", ErrValidation)
)

// FieldError reports a single input field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// IOError wraps a filesystem failure together with the operation that hit it.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// PartialFailureError is returned when the database half of a transition
// committed and the filesystem step that follows it did not.
type PartialFailureError struct {
	DeploymentID string
	Version      string
	Step         string
	Err          error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("deployment %s version %s committed but %s failed: %v", e.DeploymentID, e.Version, e.Step, e.Err)
}

func (e *PartialFailureError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Err}
}
