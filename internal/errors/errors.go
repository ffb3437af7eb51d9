// Package errors provides structured errors for the combat engine: every
// error carries a Code, a message, and optional metadata. Combat rejections
// (wrong phase, insufficient AP, ...) are ordinary errors with rejection
// codes; they are returned synchronously and never escape to corrupt state.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with code, message, and metadata
type Error struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the target error is of the same type
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// WithMeta adds metadata to the error
func (e *Error) WithMeta(key string, value interface{}) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]interface{})
	}
	e.Meta[key] = value
	return e
}

// New creates a new error with the given code and message
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new error with a formatted message
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error, preserving its code if it's an Error
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Code:    existingErr.Code,
			Message: message,
			Cause:   err,
			Meta:    existingErr.Meta,
		}
	}

	return &Error{
		Code:    CodeInternal,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Constructor functions for transport-level error types

// NotFound creates a not found error
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// NotFoundf creates a not found error with formatted message
func NotFoundf(format string, args ...interface{}) *Error {
	return Newf(CodeNotFound, format, args...)
}

// InvalidArgument creates an invalid argument error
func InvalidArgument(message string) *Error {
	return New(CodeInvalidArgument, message)
}

// InvalidArgumentf creates an invalid argument error with formatted message
func InvalidArgumentf(format string, args ...interface{}) *Error {
	return Newf(CodeInvalidArgument, format, args...)
}

// AlreadyExists creates an already exists error
func AlreadyExists(message string) *Error {
	return New(CodeAlreadyExists, message)
}

// PermissionDenied creates a permission denied error
func PermissionDenied(message string) *Error {
	return New(CodePermissionDenied, message)
}

// PermissionDeniedf creates a permission denied error with formatted message
func PermissionDeniedf(format string, args ...interface{}) *Error {
	return Newf(CodePermissionDenied, format, args...)
}

// FailedPrecondition creates a failed precondition error
func FailedPrecondition(message string) *Error {
	return New(CodeFailedPrecondition, message)
}

// Internal creates an internal error
func Internal(message string) *Error {
	return New(CodeInternal, message)
}

// Internalf creates an internal error with formatted message
func Internalf(format string, args ...interface{}) *Error {
	return Newf(CodeInternal, format, args...)
}

// Unavailable creates an unavailable error
func Unavailable(message string) *Error {
	return New(CodeUnavailable, message)
}

// Unauthenticated creates an unauthenticated error
func Unauthenticated(message string) *Error {
	return New(CodeUnauthenticated, message)
}

// Constructor functions for combat rejections

// WrongPhase rejects a request that is incompatible with the current phase
func WrongPhase(message string) *Error {
	return New(CodeWrongPhase, message)
}

// WrongPhasef rejects a request with a formatted message
func WrongPhasef(format string, args ...interface{}) *Error {
	return Newf(CodeWrongPhase, format, args...)
}

// WrongTurn rejects a request from an entity whose turn it is not
func WrongTurn(message string) *Error {
	return New(CodeWrongTurn, message)
}

// InsufficientAP rejects an action the entity cannot afford
func InsufficientAP(message string) *Error {
	return New(CodeInsufficientAP, message)
}

// InsufficientAPf rejects an action with a formatted message
func InsufficientAPf(format string, args ...interface{}) *Error {
	return Newf(CodeInsufficientAP, format, args...)
}

// InsufficientEnergy rejects an action the entity cannot afford
func InsufficientEnergy(message string) *Error {
	return New(CodeInsufficientEnergy, message)
}

// InsufficientEnergyf rejects an action with a formatted message
func InsufficientEnergyf(format string, args ...interface{}) *Error {
	return Newf(CodeInsufficientEnergy, format, args...)
}

// InvalidTarget rejects a request whose target is missing, dead, or of the
// wrong faction for the action
func InvalidTarget(message string) *Error {
	return New(CodeInvalidTarget, message)
}

// InvalidTargetf rejects a request with a formatted message
func InvalidTargetf(format string, args ...interface{}) *Error {
	return Newf(CodeInvalidTarget, format, args...)
}

// OutOfRange rejects a request whose target is beyond reach
func OutOfRange(message string) *Error {
	return New(CodeOutOfRange, message)
}

// NotInterruptible rejects a reaction against a non-interruptible action
func NotInterruptible(message string) *Error {
	return New(CodeNotInterruptible, message)
}
