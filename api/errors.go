package api

import (
	"fmt"
	"net/http"
)

// ErrorCodeInsufficientCredits is the structured error code the server sends
// when the account balance can't cover a submission.
const ErrorCodeInsufficientCredits = "INSUFFICIENT_CREDITS"

// ConnectionError means no HTTP response was obtained at all (DNS failure,
// connection refused, timeout before headers). It is distinct from APIError,
// which always carries a server-produced status code.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("no response from server: %s", e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// APIError is a non-2xx response from the server. Code is set when the
// response body carried a structured error envelope, empty otherwise.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// InsufficientCreditsError is the balance-insufficiency case of APIError,
// kept as a separate type so callers can offer a top-up action instead of a
// generic retry.
type InsufficientCreditsError struct {
	APIError
}
