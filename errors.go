package loginmanager

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated is returned when no active, authenticated user could
	// be resolved for the request. It maps to 401, which the middleware turns
	// into a redirect to the login view when redirects are enabled.
	ErrUnauthenticated = errors.New("loginmanager: no authentication")

	// ErrMissingMiddleware is returned when a user accessor runs on a request
	// that did not pass through LoginManager.Middleware. It is an integration
	// bug and maps to 500.
	ErrMissingMiddleware = errors.New("loginmanager: login manager middleware is not installed")

	// ErrUserNotFound may be returned by a Resolver when there is no user for the key.
	ErrUserNotFound = errors.New("loginmanager: user not found")
)

// HTTPError lets a Decoder short-circuit the request with a specific status.
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusFor maps an error from this package to an HTTP status code.
func StatusFor(err error) int {
	var httpErr *HTTPError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &httpErr):
		return httpErr.Status
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage never includes wrapped error details.
func publicMessage(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}

	switch StatusFor(err) {
	case http.StatusUnauthorized:
		return "No authentication."
	case http.StatusBadRequest:
		return "Bad request."
	default:
		return "Internal server error."
	}
}

// WriteError writes err as a plain text response with the status from StatusFor.
func WriteError(w http.ResponseWriter, err error) {
	http.Error(w, publicMessage(err), StatusFor(err))
}
