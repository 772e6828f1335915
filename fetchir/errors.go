package fetchir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes library errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates a builder input failed validation.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrCodeQueryBuild indicates rendering the query failed.
	ErrCodeQueryBuild ErrorCode = "QUERY_BUILD_ERROR"

	// ErrCodeAttribute indicates an attribute-specific failure.
	ErrCodeAttribute ErrorCode = "ATTRIBUTE_ERROR"
)

// Coder is implemented by every error this library returns.
type Coder interface {
	error
	Code() ErrorCode
}

// ValidationError reports an input that failed a validator check.
type ValidationError struct {
	// Field names the input that failed (e.g. "operator", "entity", "top").
	Field string

	// Message is a human-readable description including the offending value.
	Message string

	// Path locates the node inside a tree walked by ValidateGroup,
	// ValidateLink or ValidateQuery. Empty for single-value checks.
	Path string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s (at %s)", ErrCodeValidation, e.Field, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s: %s", ErrCodeValidation, e.Field, e.Message)
}

// Code implements Coder.
func (e *ValidationError) Code() ErrorCode { return ErrCodeValidation }

// QueryBuildError reports a rendering failure. Message preserves the
// underlying cause's message.
type QueryBuildError struct {
	Message string
	Err     error
}

// NewQueryBuildError wraps err.
func NewQueryBuildError(err error) *QueryBuildError {
	return &QueryBuildError{Message: err.Error(), Err: err}
}

// Error implements the error interface.
func (e *QueryBuildError) Error() string {
	return fmt.Sprintf("[%s] failed to build query: %s", ErrCodeQueryBuild, e.Message)
}

// Unwrap returns the underlying cause.
func (e *QueryBuildError) Unwrap() error { return e.Err }

// Code implements Coder.
func (e *QueryBuildError) Code() ErrorCode { return ErrCodeQueryBuild }

// AttributeError reports a failure tied to one attribute. No builder flow
// returns it today.
type AttributeError struct {
	Attribute string
	Message   string
}

// Error implements the error interface.
func (e *AttributeError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ErrCodeAttribute, e.Attribute, e.Message)
}

// Code implements Coder.
func (e *AttributeError) Code() ErrorCode { return ErrCodeAttribute }

// CodeOf returns the code of the first Coder in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// IsValidationError returns true if err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsQueryBuildError returns true if err is or wraps a *QueryBuildError.
func IsQueryBuildError(err error) bool {
	var qe *QueryBuildError
	return errors.As(err, &qe)
}

// IsAttributeError returns true if err is or wraps an *AttributeError.
func IsAttributeError(err error) bool {
	var ae *AttributeError
	return errors.As(err, &ae)
}
