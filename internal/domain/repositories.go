package domain

import (
	"context"
)

// ProgressFunc reports transfer progress as a percentage in [0, 100]
type ProgressFunc func(percent int)

// TokenFunc resolves a bearer token. It is called once per request and its
// result is never cached by callers. An empty token means signed out.
type TokenFunc func(ctx context.Context) (string, error)

// PhotoLister fetches pages of the signed-in user's photos
type PhotoLister interface {
	// ListPhotos returns up to limit photos starting at offset, newest first,
	// together with the total number of photos the user owns
	ListPhotos(ctx context.Context, token string, offset, limit int) (PhotoPage, error)
}

// PhotoRepository is the remote photo service
type PhotoRepository interface {
	PhotoLister

	// UploadPhoto stores a new photo and returns its metadata
	UploadPhoto(ctx context.Context, token string, upload Upload, onProgress ProgressFunc) (Photo, error)

	// DeletePhoto removes a photo and returns the service's confirmation message
	DeletePhoto(ctx context.Context, token, id string) (string, error)

	// FetchPhotoBytes returns the photo's original bytes
	FetchPhotoBytes(ctx context.Context, token, id string) ([]byte, error)
}

// Session is the identity provider as seen by the client
type Session interface {
	// IsSignedIn reports whether a user is currently signed in
	IsSignedIn() bool

	// Token resolves a fresh bearer token for a single request
	Token(ctx context.Context) (string, error)

	// User returns the signed-in user (zero value when signed out)
	User() User

	// SignOut ends the session
	SignOut(ctx context.Context) error
}

// ImageCache stores fetched photo bytes keyed by photo ID
type ImageCache interface {
	Get(id string) ([]byte, bool)
	Put(id string, data []byte) error
	Delete(id string)
	Clear()
	Close() error
}
