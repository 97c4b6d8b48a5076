package domain

import (
	"context"
	"errors"
)

// Sentinel errors for photo service operations
var (
	// ErrAuthRequired indicates the service rejected the credentials (401)
	ErrAuthRequired = errors.New("authentication required")

	// ErrForbidden indicates the caller may not perform the operation (403)
	ErrForbidden = errors.New("access denied")

	// ErrBadRequest indicates the service rejected the input (400)
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound indicates the photo does not exist (404)
	ErrNotFound = errors.New("photo not found")

	// ErrServer indicates a server-side failure (5xx)
	ErrServer = errors.New("photo service error")

	// ErrNetwork indicates the photo service is unreachable
	ErrNetwork = errors.New("photo service is unreachable")

	// ErrNotAuthenticated is raised locally before any network call when no
	// user is signed in
	ErrNotAuthenticated = errors.New("user not authenticated")
)

// UserMessage converts an error into a short message suitable for the
// status line
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return "Please sign in first."
	case errors.Is(err, ErrAuthRequired):
		return "Authentication required. Please sign in."
	case errors.Is(err, ErrForbidden):
		return "Access denied. You do not have permission to perform this action."
	case errors.Is(err, ErrBadRequest):
		return "Bad request. Please check your input."
	case errors.Is(err, ErrNotFound):
		return "Photo not found."
	case errors.Is(err, ErrServer):
		return "Server error. Please try again later."
	case errors.Is(err, ErrNetwork):
		return "Network error. Please check your connection."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	default:
		return "An unexpected error occurred."
	}
}
