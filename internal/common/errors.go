// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Domain errors.
	ErrInvalidDomain     = errors.New("invalid domain")
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// Approximation errors.
	ErrToleranceNotMet = errors.New("approximation tolerance not met")
	ErrSingularSystem  = errors.New("singular or rank-deficient system")

	// Extraction errors.
	ErrSolverFailure = errors.New("root solver failure")
	ErrNoCandidates  = errors.New("no candidates in domain")

	// Refinement and classification errors.
	ErrRefinementDivergence = errors.New("refinement did not converge")
	ErrHessianFailure       = errors.New("hessian computation failed")

	// Fatal conditions.
	ErrObjectivePanic = errors.New("objective function panicked")
	ErrMissingConfig  = errors.New("missing configuration")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsFatal reports whether an error should abort the whole pipeline rather
// than degrade a single record. Everything outside this set is recorded on
// the affected point and processing continues.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidDomain) ||
		errors.Is(err, ErrObjectivePanic) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig)
}
