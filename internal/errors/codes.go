package errors

import "net/http"

// Code represents an error code
type Code string

// Transport-level error codes
const (
	CodeOK                 Code = "OK"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"
	CodeInternal           Code = "INTERNAL"
	CodeUnavailable        Code = "UNAVAILABLE"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
)

// Combat rejection codes. These are returned synchronously to the requesting
// client and never mutate combat state.
const (
	CodeWrongPhase         Code = "WRONG_PHASE"
	CodeWrongTurn          Code = "WRONG_TURN"
	CodeInsufficientAP     Code = "INSUFFICIENT_AP"
	CodeInsufficientEnergy Code = "INSUFFICIENT_ENERGY"
	CodeInvalidTarget      Code = "INVALID_TARGET"
	CodeOutOfRange         Code = "OUT_OF_RANGE"
	CodeNotInterruptible   Code = "NOT_INTERRUPTIBLE"
)

// String returns the string representation of the code
func (c Code) String() string {
	return string(c)
}

// IsRejection reports whether the code is a combat rejection rather than a
// transport or infrastructure failure.
func (c Code) IsRejection() bool {
	switch c {
	case CodeWrongPhase, CodeWrongTurn, CodeInsufficientAP, CodeInsufficientEnergy,
		CodeInvalidTarget, CodeOutOfRange, CodeNotInterruptible:
		return true
	default:
		return false
	}
}

// HTTPStatus returns the corresponding HTTP status code
func (c Code) HTTPStatus() int {
	switch c {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidArgument, CodeOutOfRange:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeFailedPrecondition, CodeWrongPhase, CodeWrongTurn,
		CodeInsufficientAP, CodeInsufficientEnergy, CodeInvalidTarget,
		CodeNotInterruptible:
		return http.StatusPreconditionFailed
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
