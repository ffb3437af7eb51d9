package errors

import (
	"errors"
)

// As is a wrapper around errors.As that works with our Error type
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// GetCode extracts the error code from an error
func GetCode(err error) Code {
	if err == nil {
		return CodeOK
	}

	var customErr *Error
	if errors.As(err, &customErr) {
		return customErr.Code
	}

	return CodeInternal
}

// GetMeta extracts metadata from an error
func GetMeta(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	var customErr *Error
	if errors.As(err, &customErr) {
		return customErr.Meta
	}

	return nil
}

// GetMessage extracts the user-friendly message from an error
func GetMessage(err error) string {
	if err == nil {
		return ""
	}

	var customErr *Error
	if errors.As(err, &customErr) {
		return customErr.Message
	}

	return err.Error()
}

// IsRejection checks if an error is a combat rejection (state unchanged)
func IsRejection(err error) bool {
	return GetCode(err).IsRejection()
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return GetCode(err) == CodeNotFound
}

// IsInvalidArgument checks if an error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return GetCode(err) == CodeInvalidArgument
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return GetCode(err) == CodeAlreadyExists
}

// IsPermissionDenied checks if an error is a permission denied error
func IsPermissionDenied(err error) bool {
	return GetCode(err) == CodePermissionDenied
}

// IsFailedPrecondition checks if an error is a failed precondition error
func IsFailedPrecondition(err error) bool {
	return GetCode(err) == CodeFailedPrecondition
}

// IsWrongPhase checks if an error is a wrong phase rejection
func IsWrongPhase(err error) bool {
	return GetCode(err) == CodeWrongPhase
}

// IsWrongTurn checks if an error is a wrong turn rejection
func IsWrongTurn(err error) bool {
	return GetCode(err) == CodeWrongTurn
}

// IsInsufficientAP checks if an error is an insufficient AP rejection
func IsInsufficientAP(err error) bool {
	return GetCode(err) == CodeInsufficientAP
}

// IsInsufficientEnergy checks if an error is an insufficient energy rejection
func IsInsufficientEnergy(err error) bool {
	return GetCode(err) == CodeInsufficientEnergy
}

// IsInvalidTarget checks if an error is an invalid target rejection
func IsInvalidTarget(err error) bool {
	return GetCode(err) == CodeInvalidTarget
}

// IsOutOfRange checks if an error is an out of range rejection
func IsOutOfRange(err error) bool {
	return GetCode(err) == CodeOutOfRange
}

// IsNotInterruptible checks if an error is a not interruptible rejection
func IsNotInterruptible(err error) bool {
	return GetCode(err) == CodeNotInterruptible
}
