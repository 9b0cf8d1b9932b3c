package library

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable failure reason surfaced to callers.
type Code string

const (
	CodeNotAuthenticated      Code = "NOT_AUTHENTICATED"
	CodeQuotaExceeded         Code = "QUOTA_EXCEEDED"
	CodeStoreUnavailable      Code = "STORE_UNAVAILABLE"
	CodeInvalidCollectionKind Code = "INVALID_COLLECTION_KIND"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeInvalidPosition       Code = "INVALID_POSITION"
	CodeInvalidBook           Code = "INVALID_BOOK"
)

// HTTPStatus returns the status code handlers should answer with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotAuthenticated:
		return http.StatusUnauthorized
	case CodeQuotaExceeded, CodeInvalidTransition:
		return http.StatusConflict
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case CodeInvalidCollectionKind, CodeInvalidPosition, CodeInvalidBook:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a library failure carrying a Code.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same Code, so the sentinels below work with
// errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrNotAuthenticated      = &Error{Code: CodeNotAuthenticated, Message: "not authenticated"}
	ErrQuotaExceeded         = &Error{Code: CodeQuotaExceeded, Message: "library quota exceeded"}
	ErrStoreUnavailable      = &Error{Code: CodeStoreUnavailable, Message: "store unavailable"}
	ErrInvalidCollectionKind = &Error{Code: CodeInvalidCollectionKind, Message: "invalid collection kind"}
	ErrInvalidTransition     = &Error{Code: CodeInvalidTransition, Message: "invalid identity transition"}
	ErrInvalidPosition       = &Error{Code: CodeInvalidPosition, Message: "invalid reading position"}
	ErrInvalidBook           = &Error{Code: CodeInvalidBook, Message: "invalid book id"}
)

func NotAuthenticated(msg string) *Error {
	return &Error{Code: CodeNotAuthenticated, Message: msg}
}

func QuotaExceeded(total, max int) *Error {
	return &Error{Code: CodeQuotaExceeded, Message: fmt.Sprintf("library holds %d of %d allowed books", total, max)}
}

// StoreUnavailable wraps a backend failure. op names the attempted operation.
func StoreUnavailable(op string, cause error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: op, cause: cause}
}

func InvalidCollectionKind(kind string) *Error {
	return &Error{Code: CodeInvalidCollectionKind, Message: fmt.Sprintf("unknown collection %q", kind)}
}

func InvalidTransition(from, to Identity) *Error {
	return &Error{Code: CodeInvalidTransition, Message: fmt.Sprintf("cannot switch identity from %s to %s", from, to)}
}

func InvalidPosition(msg string) *Error {
	return &Error{Code: CodeInvalidPosition, Message: msg}
}

func InvalidBook(book string) *Error {
	return &Error{Code: CodeInvalidBook, Message: fmt.Sprintf("invalid book id %q", book)}
}

// CodeOf extracts the Code from err, or "" when err is not a library error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
