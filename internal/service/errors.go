package service

import (
	"errors"
	"fmt"
)

// ErrDependency is returned by constructors when a required dependency is nil.
var ErrDependency = errors.New("missing service dependency")

// ProjectServiceError wraps unexpected failures of project operations.
type ProjectServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ProjectServiceError.
func (e *ProjectServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("project service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("project service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ProjectServiceError) Unwrap() error {
	return e.Err
}

// NewProjectServiceError creates a new ProjectServiceError.
func NewProjectServiceError(operation, message string, err error) *ProjectServiceError {
	return &ProjectServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
