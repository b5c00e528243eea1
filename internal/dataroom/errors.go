package dataroom

import (
	"fmt"
	"net/http"

	errors "github.com/Laisky/errors/v2"
)

// ErrorCode identifies a machine-stable dataroom error code.
type ErrorCode string

const (
	ErrCodeInvalidArgument     ErrorCode = "INVALID_ARGUMENT"
	ErrCodeInvalidCursor       ErrorCode = "INVALID_CURSOR"
	ErrCodeInvalidParent       ErrorCode = "INVALID_PARENT"
	ErrCodeUnsupportedMedia    ErrorCode = "UNSUPPORTED_MEDIA"
	ErrCodePayloadTooLarge     ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeUnauthenticated     ErrorCode = "UNAUTHENTICATED"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeConflict            ErrorCode = "CONFLICT"
	ErrCodeStorageInconsistent ErrorCode = "STORAGE_INCONSISTENT"
	ErrCodeRateLimited         ErrorCode = "RATE_LIMITED"
)

// Error captures a typed dataroom error with retryability metadata.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
}

// Error returns the error message.
func (e *Error) Error() string {
	if e == nil {
		return "dataroom error: <nil>"
	}
	if e.Message == "" {
		return fmt.Sprintf("dataroom error: %s", e.Code)
	}
	return e.Message
}

// NewError constructs a typed dataroom error.
func NewError(code ErrorCode, message string, retryable bool) *Error {
	return &Error{Code: code, Message: message, Retryable: retryable}
}

// AsError extracts a typed dataroom error from the error chain.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsCode reports whether the error chain contains the given code.
func IsCode(err error, code ErrorCode) bool {
	if typed, ok := AsError(err); ok {
		return typed.Code == code
	}
	return false
}

// HTTPStatus maps an error code to its response status.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeInvalidArgument, ErrCodeInvalidCursor, ErrCodeInvalidParent, ErrCodeUnsupportedMedia:
		return http.StatusBadRequest
	case ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeStorageInconsistent:
		return http.StatusGone
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// errNotFound is shared by every ownership check so absent and foreign
// entities are indistinguishable.
func errNotFound() error {
	return errors.WithStack(NewError(ErrCodeNotFound, "not found", false))
}

func errInvalidArgument(msg string) error {
	return errors.WithStack(NewError(ErrCodeInvalidArgument, msg, false))
}
