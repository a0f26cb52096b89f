package openreview

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/JasonGross/openreview-exploration/resilience"
)

var (
	// ErrTokenExpired is returned before sending a request whose bearer
	// token has passed its exp claim.
	ErrTokenExpired = errors.New("openreview: token expired")

	// ErrInvalidToken indicates a login response without a usable token.
	ErrInvalidToken = errors.New("openreview: invalid token")

	// ErrMalformedResponse indicates a response body that is not the
	// expected JSON, typically a truncated transfer.
	ErrMalformedResponse = errors.New("openreview: malformed response")

	// ErrMissingCredentials indicates Login was called without a username or password.
	ErrMissingCredentials = errors.New("openreview: username and password are required")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Name != "" && e.Message != "":
		return fmt.Sprintf("API request failed (HTTP %d): %s: %s", e.StatusCode, e.Name, e.Message)
	case e.Name != "":
		return fmt.Sprintf("API request failed (HTTP %d): %s", e.StatusCode, e.Name)
	case e.Message != "":
		return fmt.Sprintf("API request failed (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API request failed (HTTP %d)", e.StatusCode)
}

// Temporary reports whether the status code indicates a transient failure.
func (e *APIError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}

type errorBody struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// IsRetryable reports whether a failed call may succeed when repeated:
// transient API statuses, malformed bodies and network errors. Context
// cancellation, expired tokens and other 4xx responses are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrTokenExpired) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	if errors.Is(err, ErrMalformedResponse) || errors.Is(err, resilience.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
