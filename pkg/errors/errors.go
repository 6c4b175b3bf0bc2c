// Package errors provides the application's sentinel errors and the
// AppError type, which derives an HTTP status from its code (spec §6, §7).
// The HTTP handlers write their status and message directly; only the
// Recovery middleware uses this package, for its error code.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for terminal/classified conditions, checked with
// errors.Is/errors.As rather than string comparison (string matching is
// reserved for classifying opaque LLM/transport errors in package llm).
//
// repository.ErrNoTranscript/ErrTranscriptsDisabled cover the CaptionSource
// outcomes and live there instead of here, since the negative-cache logic
// that checks them sits next to the interface it's classifying.
var (
	ErrFatalSummarize   = errors.New("chapterizer produced zero chapters")
	ErrHintDecodeFailed = errors.New("chapter hint timestamp decode failed")
)

// ErrorCode classifies an AppError for the HTTP dispatcher.
type ErrorCode string

const (
	CodeInvalidParam       ErrorCode = "invalid_param"
	CodeNotFound           ErrorCode = "not_found"
	CodeTooManyRequests    ErrorCode = "too_many_requests"
	CodeBadGateway         ErrorCode = "bad_gateway"
	CodeInternalError      ErrorCode = "internal_error"
	CodeServiceUnavailable ErrorCode = "service_unavailable"
)

// AppError is an error carrying the HTTP status the dispatcher should
// answer with, per spec §6's exit-condition table.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New creates an AppError, deriving its HTTP status from code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: codeToHTTPStatus(code)}
}

// Wrap attaches an underlying cause to a new AppError.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: codeToHTTPStatus(code), Err: err}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeBadGateway:
		return http.StatusBadGateway
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrInvalidParam  = New(CodeInvalidParam, "invalid parameter")
	ErrNotFoundHTTP  = New(CodeNotFound, "resource not found")
	ErrInternalError = New(CodeInternalError, "internal server error")
)

// AsAppError coerces err into an *AppError, defaulting to internal_error.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeInternalError, "internal server error")
}
