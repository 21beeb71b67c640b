// Package errors carries the typed errors services return and the HTTP
// contract each error code maps to.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Code is the stable, client-visible error kind.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeInsufficientCredit Code = "INSUFFICIENT_CREDIT"
	CodeUploadFailed       Code = "UPLOAD_FAILED"
	CodeIdempotency        Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit          Code = "RATE_LIMITED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeDependency         Code = "DEPENDENCY_ERROR"
)

// Metadata is the HTTP contract of a code. For client faults the error's own
// message is shown to the caller; otherwise only PublicMessage is.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	ClientFault    bool
}

func client(status int, msg string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg, DetailsAllowed: details, ClientFault: true}
}

func server(status int, msg string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg, DetailsAllowed: details, Retryable: true}
}

var codeTable = map[Code]Metadata{
	CodeValidation:         client(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized:       client(http.StatusUnauthorized, "authentication required", false),
	CodeForbidden:          client(http.StatusForbidden, "access denied", false),
	CodeNotFound:           client(http.StatusNotFound, "resource not found", false),
	CodeConflict:           client(http.StatusConflict, "conflict detected", false),
	CodeInvalidState:       client(http.StatusUnprocessableEntity, "state transition not permitted", true),
	CodeInsufficientCredit: client(http.StatusUnprocessableEntity, "insufficient store credit", true),
	CodeIdempotency:        client(http.StatusConflict, "idempotency key reused", true),
	CodeUploadFailed:       server(http.StatusBadGateway, "upload failed", false),
	CodeInternal:           server(http.StatusInternalServerError, "internal server error", false),
	CodeDependency:         server(http.StatusServiceUnavailable, "dependency unavailable", true),
}

func init() {
	// Throttling is the caller's doing but worth retrying.
	m := client(http.StatusTooManyRequests, "too many requests", false)
	m.Retryable = true
	codeTable[CodeRateLimit] = m
}

// MetadataFor treats unknown codes as internal errors.
func MetadataFor(code Code) Metadata {
	if m, ok := codeTable[code]; ok {
		return m
	}
	return codeTable[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to cause. A nil cause yields a plain New.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the client-visible details and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	parts := []string{string(e.code)}
	if e.message != "" {
		parts = append(parts, e.message)
	}
	if e.cause != nil {
		parts = append(parts, e.cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost typed error in the chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf reports the code of err; untyped errors are internal.
func CodeOf(err error) Code {
	switch typed := As(err); {
	case err == nil:
		return ""
	case typed != nil:
		return typed.code
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
