package vt

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by the lookup client. Use errors.Is to check them.
var (
	// ErrUnsupportedKind indicates a kind outside file, domain, ip_address and url.
	// It is returned before any request is made.
	ErrUnsupportedKind = errors.New("unsupported indicator kind")

	// ErrMissingColumn indicates a batch input table lacks a required column.
	ErrMissingColumn = errors.New("missing column")

	// ErrLookupFailed covers transport errors, error responses and malformed payloads.
	ErrLookupFailed = errors.New("lookup failed")

	// ErrEmptyInput indicates BuildGraph was called without relationship tables.
	ErrEmptyInput = errors.New("no relationship tables")

	errNoGraphService = errors.New("no graph service configured")
)

// LookupError describes a failed remote operation.
//
// errors.Is(err, ErrLookupFailed) is true for every LookupError; the underlying
// cause (often an *APIError) is available through errors.As.
type LookupError struct {
	// Op is the client operation, e.g. "LookupOne".
	Op string
	// Kind and Value identify the indicator, when there is one.
	Kind  string
	Value string
	Err   error
}

func (e *LookupError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v: %v", e.Op, ErrLookupFailed, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v: %v", e.Op, e.Kind, e.Value, ErrLookupFailed, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

func (e *LookupError) Is(target error) bool { return target == ErrLookupFailed }

// APIError is an error response returned by the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err was caused by an unknown object.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound || apiErr.Code == "NotFoundError"
	}
	return false
}
