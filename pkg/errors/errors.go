// Package errors carries the coded error type every layer speaks. A code
// pins the HTTP mapping and whether caller-supplied details may leak to the
// client; the ledger codes (MODIFICATION_NOT_ALLOWED, INSUFFICIENT_STOCK,
// LEDGER_MISSING) are the contract the recorders enforce.
package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeNotFound               Code = "NOT_FOUND"
	CodeConflict               Code = "CONFLICT"
	CodeModificationNotAllowed Code = "MODIFICATION_NOT_ALLOWED"
	CodeInsufficientStock      Code = "INSUFFICIENT_STOCK"
	CodeLedgerMissing          Code = "LEDGER_MISSING"
	CodeIdempotency            Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal               Code = "INTERNAL_ERROR"
	CodeDependency             Code = "DEPENDENCY_ERROR"
)

// Metadata is the transport-facing contract of a code.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

func meta(status int, retryable, details bool, msg string) Metadata {
	return Metadata{HTTPStatus: status, Retryable: retryable, PublicMessage: msg, DetailsAllowed: details}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:             meta(http.StatusBadRequest, false, true, "validation failed"),
	CodeNotFound:               meta(http.StatusNotFound, false, false, "resource not found"),
	CodeConflict:               meta(http.StatusConflict, false, false, "conflict detected"),
	CodeModificationNotAllowed: meta(http.StatusUnprocessableEntity, false, true, "committed events cannot be modified"),
	CodeInsufficientStock:      meta(http.StatusUnprocessableEntity, false, true, "insufficient stock"),
	CodeLedgerMissing:          meta(http.StatusInternalServerError, false, false, "stock ledger entry missing"),
	CodeIdempotency:            meta(http.StatusConflict, false, true, "idempotency key reused"),
	CodeInternal:               meta(http.StatusInternalServerError, true, false, "internal server error"),
	CodeDependency:             meta(http.StatusServiceUnavailable, true, true, "dependency unavailable"),
}

// MetadataFor resolves a code's transport contract; unknown codes map to
// INTERNAL_ERROR so nothing undeclared ever reaches a client verbatim.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error with an optional wrapped cause and client-facing
// details payload.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
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

// WithDetails attaches a payload surfaced to clients when the code's
// metadata allows it.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

// As extracts the first coded error in the chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err resolves to the given code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
