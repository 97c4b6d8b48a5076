package photoapi

import (
	"fmt"
	"net/http"

	"github.com/mmcdole/photure/internal/domain"
)

// APIError is a non-2xx response from the photo service.
// It unwraps to one of the domain sentinel errors.
type APIError struct {
	Status int
	Detail string
	Kind   error
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s (status %d)", e.Kind, e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// kindForStatus maps an HTTP status code to a domain error
func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return domain.ErrAuthRequired
	case status == http.StatusForbidden:
		return domain.ErrForbidden
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status >= 500:
		return domain.ErrServer
	default:
		return domain.ErrBadRequest
	}
}
