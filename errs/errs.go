package errs

import (
	"fmt"
	"net/http"
)

// ValidationError reports bad input shape, length or enum value.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports a missing post or other resource.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// AuthorizationError covers both missing credentials (401) and
// insufficient role (403). Forbidden selects between the two.
type AuthorizationError struct {
	Message   string
	Forbidden bool
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

// NotInitializedError means a required collaborator was not wired in
// at construction time. Surfaced at startup, never at request time.
type NotInitializedError struct {
	Component string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("%s not initialized", e.Component)
}

// StoreError wraps a persistence failure. Not retried by the core.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// TransportError wraps a live-channel failure. Non-fatal: logged and
// retried by the caller, never propagated to a mutation's response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps an error to the status code the REST surface reports.
func HTTPStatus(err error) int {
	switch e := err.(type) {
	case *ValidationError:
		return http.StatusBadRequest
	case *NotFoundError:
		return http.StatusNotFound
	case *AuthorizationError:
		if e.Forbidden {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
