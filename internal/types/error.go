package types

import (
	"errors"
	"net/http"
)

type ErrorCode string

const (
	NotWhitelisted       ErrorCode = "NOT_WHITELISTED"
	FeedNotWhitelisted   ErrorCode = "FEED_NOT_WHITELISTED"
	InvalidMetadata      ErrorCode = "INVALID_METADATA"
	InvalidIdentifier    ErrorCode = "INVALID_IDENTIFIER"
	IdentifierTaken      ErrorCode = "IDENTIFIER_TAKEN"
	InsufficientBudget   ErrorCode = "INSUFFICIENT_BUDGET"
	WrongState           ErrorCode = "WRONG_STATE"
	Unauthorized         ErrorCode = "UNAUTHORIZED"
	TransferFailed       ErrorCode = "TRANSFER_FAILED"
	NothingToWithdraw    ErrorCode = "NOTHING_TO_WITHDRAW"
	NotFound             ErrorCode = "NOT_FOUND"
	BadRequest           ErrorCode = "BAD_REQUEST"
	InternalServiceError ErrorCode = "INTERNAL_SERVICE_ERROR"
)

func (c ErrorCode) String() string {
	return string(c)
}

// Error is the error type returned by the service and vault layers. StatusCode
// is the HTTP status the api layer responds with.
type Error struct {
	StatusCode int
	ErrorCode  ErrorCode
	Err        error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(statusCode int, errorCode ErrorCode, err error) *Error {
	return &Error{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Err:        err,
	}
}

func NewErrorWithMsg(statusCode int, errorCode ErrorCode, msg string) *Error {
	return &Error{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Err:        errors.New(msg),
	}
}

func NewValidationFailedError(err error) *Error {
	return NewError(http.StatusBadRequest, BadRequest, err)
}

func NewInternalServiceError(err error) *Error {
	return NewError(http.StatusInternalServerError, InternalServiceError, err)
}

// IsErrorCode reports whether err wraps a *Error carrying code.
func IsErrorCode(err error, code ErrorCode) bool {
	var typedErr *Error
	if errors.As(err, &typedErr) {
		return typedErr.ErrorCode == code
	}
	return false
}
