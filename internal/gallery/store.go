// Package gallery holds the signed-in user's photo list: the store, the
// controller that gates it on the session, and the grouped projection the
// views render.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/photure/internal/domain"
)

// PageSize is the number of photos requested per page
const PageSize = 20

// LoadErrorMessage is recorded in State.Error when a page fails to load
const LoadErrorMessage = "Failed to load photos. Please try again."

// ErrStaleResult is returned by a load whose session was cleared while its
// request was in flight. The result has been discarded.
var ErrStaleResult = errors.New("stale photo list result discarded")

// State is a snapshot of the photo list
type State struct {
	Photos      []domain.Photo
	Loading     bool   // Initial (replacing) load in flight
	LoadingMore bool   // Pagination (appending) load in flight
	Error       string // Empty when there is no error
	HasMore     bool
	CurrentPage int
	TotalCount  int
	Version     uint64 // Bumped on every mutation
}

func initialState() State {
	return State{
		Photos:  []domain.Photo{},
		HasMore: true,
	}
}

// Store is the in-memory photo list for one session. It is safe for
// concurrent use; network I/O never happens under its lock.
type Store struct {
	lister domain.PhotoLister
	logger *slog.Logger

	mu      sync.RWMutex
	state   State
	epoch   uint64 // Advanced by Clear
	version uint64
}

// NewStore creates an empty store that loads pages from lister
func NewStore(lister domain.PhotoLister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		lister: lister,
		logger: logger,
		state:  initialState(),
	}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	st.Photos = make([]domain.Photo, len(s.state.Photos))
	copy(st.Photos, s.state.Photos)
	return st
}

// Version returns the current mutation counter
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Version
}

// Epoch identifies the current session. It changes on every Clear.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// touch records a mutation. Caller holds s.mu.
func (s *Store) touch() {
	s.version++
	s.state.Version = s.version
}

// LoadPhotos fetches one page and replaces the list with it, or appends it
// when appendPage is set. A token is resolved from tokens for this request
// only. On failure the list is left untouched and State.Error is set.
func (s *Store) LoadPhotos(ctx context.Context, tokens domain.TokenFunc, page int, appendPage bool) error {
	if page < 0 {
		return fmt.Errorf("%w: negative page %d", domain.ErrBadRequest, page)
	}

	s.mu.Lock()
	epoch := s.epoch
	if appendPage {
		s.state.LoadingMore = true
		s.state.Loading = false
	} else {
		s.state.Loading = true
		s.state.LoadingMore = false
	}
	s.state.Error = ""
	s.touch()
	s.mu.Unlock()

	result, err := s.fetch(ctx, tokens, page)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		s.logger.Debug("discarding photo page from cleared session", "page", page)
		return ErrStaleResult
	}

	s.state.Loading = false
	s.state.LoadingMore = false
	defer s.touch()

	if err != nil {
		s.state.Error = LoadErrorMessage
		s.logger.Error("failed to load photos", "page", page, "append", appendPage, "error", err)
		return err
	}

	if appendPage {
		s.state.Photos = append(s.state.Photos, result.Photos...)
	} else {
		s.state.Photos = append(make([]domain.Photo, 0, len(result.Photos)), result.Photos...)
	}
	s.state.HasMore = len(result.Photos) == PageSize
	s.state.CurrentPage = page
	s.state.TotalCount = result.Total
	s.state.Error = ""

	s.logger.Debug("loaded photos", "page", page, "count", len(result.Photos), "total", result.Total)
	return nil
}

func (s *Store) fetch(ctx context.Context, tokens domain.TokenFunc, page int) (domain.PhotoPage, error) {
	var token string
	if tokens != nil {
		t, err := tokens(ctx)
		if err != nil {
			return domain.PhotoPage{}, fmt.Errorf("failed to resolve token: %w", err)
		}
		token = t
	}
	return s.lister.ListPhotos(ctx, token, page*PageSize, PageSize)
}

// RefreshPhotos restarts pagination and reloads the first page
func (s *Store) RefreshPhotos(ctx context.Context, tokens domain.TokenFunc) error {
	s.mu.Lock()
	s.state.CurrentPage = 0
	s.state.HasMore = true
	s.touch()
	s.mu.Unlock()

	return s.LoadPhotos(ctx, tokens, 0, false)
}

// AddPhoto prepends a photo and counts it in the total
func (s *Store) AddPhoto(photo domain.Photo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addPhoto(photo)
}

func (s *Store) addPhoto(photo domain.Photo) {
	photos := make([]domain.Photo, 0, len(s.state.Photos)+1)
	photos = append(photos, photo)
	s.state.Photos = append(photos, s.state.Photos...)
	s.state.TotalCount++
	s.touch()
}

// RemovePhoto drops every photo with id. The total is decremented once and
// never goes below zero.
func (s *Store) RemovePhoto(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removePhoto(id)
}

func (s *Store) removePhoto(id string) {
	photos := make([]domain.Photo, 0, len(s.state.Photos))
	for _, p := range s.state.Photos {
		if p.ID != id {
			photos = append(photos, p)
		}
	}
	s.state.Photos = photos
	s.state.TotalCount = max(0, s.state.TotalCount-1)
	s.touch()
}

// UpdatePhoto applies update to every photo with id
func (s *Store) UpdatePhoto(id string, update domain.PhotoUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i, p := range s.state.Photos {
		if p.ID == id {
			s.state.Photos[i] = update.Apply(p)
			changed = true
		}
	}
	if changed {
		s.touch()
	}
}

// addPhotoIn and removePhotoIn mutate only if the session has not been
// cleared since epoch
func (s *Store) addPhotoIn(epoch uint64, photo domain.Photo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.addPhoto(photo)
	return true
}

func (s *Store) removePhotoIn(epoch uint64, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.removePhoto(id)
	return true
}

// Clear resets the store to its initial state and starts a new session.
// Loads still in flight for the previous session will be discarded.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.state = initialState()
	s.touch()
}

// SetError records an error message without touching anything else
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = msg
	s.touch()
}

// ClearError removes the error message
func (s *Store) ClearError() {
	s.SetError("")
}
