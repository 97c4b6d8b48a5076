package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mmcdole/photure/internal/domain"
)

// Controller gates photo list operations on the session and routes them to
// the store and the photo service
type Controller struct {
	store   *Store
	repo    domain.PhotoRepository
	session domain.Session
	cache   domain.ImageCache
	saver   *Saver
	logger  *slog.Logger

	mu            sync.Mutex
	sessionCtx    context.Context
	cancelSession context.CancelFunc

	loadingMore atomic.Bool
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithLogger sets the controller logger
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithImageCache serves photo bytes from cache when possible
func WithImageCache(cache domain.ImageCache) ControllerOption {
	return func(c *Controller) {
		c.cache = cache
	}
}

// WithSaver sets where downloads are written
func WithSaver(saver *Saver) ControllerOption {
	return func(c *Controller) {
		c.saver = saver
	}
}

// NewController creates a controller over store
func NewController(store *Store, repo domain.PhotoRepository, session domain.Session, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:   store,
		repo:    repo,
		session: session,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.saver == nil {
		c.saver = NewSaver("")
	}
	c.sessionCtx, c.cancelSession = context.WithCancel(context.Background())
	return c
}

// Store returns the underlying photo list
func (c *Controller) Store() *Store {
	return c.store
}

// Session returns the identity collaborator
func (c *Controller) Session() domain.Session {
	return c.session
}

// scope derives a request context that is also cancelled when the current
// session is cleared
func (c *Controller) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	c.mu.Lock()
	sessionCtx := c.sessionCtx
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(sessionCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Controller) tokens(ctx context.Context) (string, error) {
	return c.session.Token(ctx)
}

// LoadInitialPhotos loads the first page, or clears the list when nobody
// is signed in
func (c *Controller) LoadInitialPhotos(ctx context.Context) error {
	if !c.session.IsSignedIn() {
		c.Clear()
		return nil
	}

	ctx, done := c.scope(ctx)
	defer done()

	return ignoreStale(c.store.LoadPhotos(ctx, c.tokens, 0, false))
}

// LoadMorePhotos requests the next page. It reports whether a request was
// issued: nothing happens when signed out, when the last page was short, or
// while another page is loading.
func (c *Controller) LoadMorePhotos(ctx context.Context) (bool, error) {
	if !c.session.IsSignedIn() {
		return false, nil
	}

	snap := c.store.Snapshot()
	if !snap.HasMore || snap.LoadingMore {
		return false, nil
	}
	if !c.loadingMore.CompareAndSwap(false, true) {
		return false, nil
	}
	defer c.loadingMore.Store(false)

	ctx, done := c.scope(ctx)
	defer done()

	return true, ignoreStale(c.store.LoadPhotos(ctx, c.tokens, snap.CurrentPage+1, true))
}

// Refresh reloads the list from the first page
func (c *Controller) Refresh(ctx context.Context) error {
	if !c.session.IsSignedIn() {
		return nil
	}

	ctx, done := c.scope(ctx)
	defer done()

	return ignoreStale(c.store.RefreshPhotos(ctx, c.tokens))
}

// UploadPhoto sends a photo and adds it to the front of the list
func (c *Controller) UploadPhoto(ctx context.Context, upload domain.Upload, onProgress domain.ProgressFunc) (domain.Photo, error) {
	if !c.session.IsSignedIn() {
		return domain.Photo{}, domain.ErrNotAuthenticated
	}

	epoch := c.store.Epoch()
	ctx, done := c.scope(ctx)
	defer done()

	token, err := c.tokens(ctx)
	if err != nil {
		return domain.Photo{}, err
	}

	photo, err := c.repo.UploadPhoto(ctx, token, upload, onProgress)
	if err != nil {
		c.logger.Error("upload failed", "file", upload.Filename, "error", err)
		return domain.Photo{}, err
	}

	if !c.store.addPhotoIn(epoch, photo) {
		c.logger.Debug("upload finished after session was cleared", "id", photo.ID)
	}
	return photo, nil
}

// DeletePhoto deletes a photo remotely, then drops it from the list and the
// image cache
func (c *Controller) DeletePhoto(ctx context.Context, id string) error {
	if !c.session.IsSignedIn() {
		return domain.ErrNotAuthenticated
	}

	epoch := c.store.Epoch()
	ctx, done := c.scope(ctx)
	defer done()

	token, err := c.tokens(ctx)
	if err != nil {
		return err
	}

	msg, err := c.repo.DeletePhoto(ctx, token, id)
	if err != nil {
		c.logger.Error("delete failed", "id", id, "error", err)
		return err
	}
	c.logger.Info("photo deleted", "id", id, "message", msg)

	c.store.removePhotoIn(epoch, id)
	if c.cache != nil {
		c.cache.Delete(id)
	}
	return nil
}

// DownloadPhoto saves a photo's bytes locally and returns the written path.
// An empty filename saves as "photo-<id>".
func (c *Controller) DownloadPhoto(ctx context.Context, id, filename string) (string, error) {
	if !c.session.IsSignedIn() {
		return "", domain.ErrNotAuthenticated
	}

	data, err := c.FetchImage(ctx, id)
	if err != nil {
		return "", err
	}

	if filename == "" {
		filename = "photo-" + id
	}
	path, err := c.saver.Save(filename, data)
	if err != nil {
		return "", fmt.Errorf("failed to save photo: %w", err)
	}

	c.logger.Info("photo downloaded", "id", id, "path", path)
	return path, nil
}

// FetchImage returns a photo's bytes, from the image cache when present
func (c *Controller) FetchImage(ctx context.Context, id string) ([]byte, error) {
	if !c.session.IsSignedIn() {
		return nil, domain.ErrNotAuthenticated
	}

	if c.cache != nil {
		if data, ok := c.cache.Get(id); ok {
			return data, nil
		}
	}

	ctx, done := c.scope(ctx)
	defer done()

	token, err := c.tokens(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}

	data, err := c.repo.FetchPhotoBytes(ctx, token, id)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Put(id, data); err != nil {
			c.logger.Warn("failed to cache image", "id", id, "error", err)
		}
	}
	return data, nil
}

// Clear cancels requests of the current session and empties the list
func (c *Controller) Clear() {
	c.mu.Lock()
	c.cancelSession()
	c.sessionCtx, c.cancelSession = context.WithCancel(context.Background())
	c.mu.Unlock()

	c.store.Clear()
}

// SignOut clears the list and cached images, then ends the session
func (c *Controller) SignOut(ctx context.Context) error {
	c.Clear()
	if c.cache != nil {
		c.cache.Clear()
	}
	if err := c.session.SignOut(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

func ignoreStale(err error) error {
	if errors.Is(err, ErrStaleResult) {
		return nil
	}
	return err
}
