package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorTransport    ErrorCode = "TRANSPORT_ERROR"
	ErrorTimeout      ErrorCode = "TIMEOUT"
	ErrorPersist      ErrorCode = "PERSIST_ERROR"
	ErrorArchive      ErrorCode = "ARCHIVE_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var ue *Error
	if !errors.As(err, &ue) {
		return "", false
	}
	return ue.Code, true
}

// IsTransport reports whether err is a model endpoint failure. Timeouts count.
func IsTransport(err error) bool {
	code, ok := CodeOf(err)
	return ok && (code == ErrorTransport || code == ErrorTimeout)
}

// IsTimeout reports whether the model endpoint did not answer in time.
func IsTimeout(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrorTimeout
}
