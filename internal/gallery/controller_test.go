package gallery

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/photure/internal/auth"
	"github.com/mmcdole/photure/internal/domain"
	"github.com/mmcdole/photure/internal/imagecache"
	"github.com/mmcdole/photure/internal/log"
	"github.com/mmcdole/photure/internal/mockserver"
	"github.com/mmcdole/photure/internal/photoapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu       sync.Mutex
	token    string
	signOuts int
}

func (s *fakeSession) IsSignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

func (s *fakeSession) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *fakeSession) User() domain.User {
	return domain.User{ID: "u"}
}

func (s *fakeSession) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.signOuts++
	return nil
}

// fakeRepo is a photo service backed by fakeLister
type fakeRepo struct {
	*fakeLister

	uploadErr  error
	uploadGate chan struct{}
	deleteErr  error
	bytes      map[string][]byte
	uploads    int
	deletes    []string
	fetches    int
	lastToken  string
}

func newFakeRepo(photos []domain.Photo) *fakeRepo {
	return &fakeRepo{
		fakeLister: &fakeLister{photos: photos},
		bytes:      map[string][]byte{},
	}
}

func (r *fakeRepo) UploadPhoto(ctx context.Context, token string, upload domain.Upload, onProgress domain.ProgressFunc) (domain.Photo, error) {
	r.mu.Lock()
	r.uploads++
	r.lastToken = token
	gate := r.uploadGate
	r.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if r.uploadErr != nil {
		return domain.Photo{}, r.uploadErr
	}
	if onProgress != nil {
		onProgress(0)
		onProgress(100)
	}
	return domain.Photo{ID: "up-" + upload.Filename, OriginalName: upload.Filename}, nil
}

func (r *fakeRepo) DeletePhoto(ctx context.Context, token, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastToken = token
	if r.deleteErr != nil {
		return "", r.deleteErr
	}
	r.deletes = append(r.deletes, id)
	return "Photo deleted successfully", nil
}

func (r *fakeRepo) FetchPhotoBytes(ctx context.Context, token, id string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
	data, ok := r.bytes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func setupController(t *testing.T, photos []domain.Photo, token string) (*Controller, *fakeRepo, *fakeSession, *imagecache.Cache) {
	t.Helper()
	repo := newFakeRepo(photos)
	session := &fakeSession{token: token}
	cache, err := imagecache.New("", "")
	require.NoError(t, err)

	store := NewStore(repo, log.NullLogger())
	c := NewController(store, repo, session,
		WithLogger(log.NullLogger()),
		WithImageCache(cache),
		WithSaver(NewSaver(t.TempDir())),
	)
	return c, repo, session, cache
}

func TestController_LoadInitialPhotos(t *testing.T) {
	t.Run("signed out clears the store without a request", func(t *testing.T) {
		c, repo, _, _ := setupController(t, makePhotos("p", 5), "")
		c.Store().AddPhoto(domain.Photo{ID: "leftover"})

		require.NoError(t, c.LoadInitialPhotos(context.Background()))

		assert.Empty(t, c.Store().Snapshot().Photos)
		assert.Equal(t, 0, repo.callCount())
	})

	t.Run("signed in loads the first page with the session token", func(t *testing.T) {
		c, repo, _, _ := setupController(t, makePhotos("p", 25), "tok")

		require.NoError(t, c.LoadInitialPhotos(context.Background()))

		st := c.Store().Snapshot()
		assert.Len(t, st.Photos, 20)
		assert.Equal(t, []listCall{{"tok", 0, 20}}, repo.calls)
	})

	t.Run("failure is recorded and returned", func(t *testing.T) {
		c, repo, _, _ := setupController(t, nil, "tok")
		repo.err = domain.ErrServer

		err := c.LoadInitialPhotos(context.Background())

		assert.ErrorIs(t, err, domain.ErrServer)
		assert.Equal(t, LoadErrorMessage, c.Store().Snapshot().Error)
	})
}

func TestController_LoadMorePhotos(t *testing.T) {
	t.Run("requests the next page", func(t *testing.T) {
		c, repo, _, _ := setupController(t, makePhotos("p", 45), "tok")
		require.NoError(t, c.LoadInitialPhotos(context.Background()))

		issued, err := c.LoadMorePhotos(context.Background())
		require.NoError(t, err)
		assert.True(t, issued)

		issued, err = c.LoadMorePhotos(context.Background())
		require.NoError(t, err)
		assert.True(t, issued)

		assert.Equal(t, 20, repo.calls[1].offset)
		assert.Equal(t, 40, repo.calls[2].offset)
		st := c.Store().Snapshot()
		assert.Len(t, st.Photos, 45)
		assert.Equal(t, 2, st.CurrentPage)
		assert.False(t, st.HasMore)
	})

	t.Run("no-op when there is nothing more", func(t *testing.T) {
		c, repo, _, _ := setupController(t, makePhotos("p", 5), "tok")
		require.NoError(t, c.LoadInitialPhotos(context.Background()))

		issued, err := c.LoadMorePhotos(context.Background())

		require.NoError(t, err)
		assert.False(t, issued)
		assert.Equal(t, 1, repo.callCount())
	})

	t.Run("no-op when signed out", func(t *testing.T) {
		c, repo, _, _ := setupController(t, makePhotos("p", 45), "")

		issued, err := c.LoadMorePhotos(context.Background())

		require.NoError(t, err)
		assert.False(t, issued)
		assert.Equal(t, 0, repo.callCount())
	})

	t.Run("no-op while a page is loading", func(t *testing.T) {
		c, repo, _, _ := setupController(t, makePhotos("p", 45), "tok")
		require.NoError(t, c.LoadInitialPhotos(context.Background()))
		repo.mu.Lock()
		repo.gate = make(chan struct{})
		repo.mu.Unlock()

		done := make(chan error, 1)
		go func() {
			_, err := c.LoadMorePhotos(context.Background())
			done <- err
		}()
		require.Eventually(t, func() bool { return repo.callCount() == 2 }, time.Second, time.Millisecond)

		issued, err := c.LoadMorePhotos(context.Background())
		require.NoError(t, err)
		assert.False(t, issued)

		close(repo.gate)
		require.NoError(t, <-done)
		assert.Equal(t, 2, repo.callCount())
		assert.Len(t, c.Store().Snapshot().Photos, 40)
	})
}

func TestController_Clear(t *testing.T) {
	t.Run("cancels in-flight loads and discards their results", func(t *testing.T) {
		c, repo, _, _ := setupController(t, makePhotos("p", 45), "tok")
		require.NoError(t, c.LoadInitialPhotos(context.Background()))
		repo.mu.Lock()
		repo.gate = make(chan struct{})
		repo.mu.Unlock()

		done := make(chan error, 1)
		go func() {
			_, err := c.LoadMorePhotos(context.Background())
			done <- err
		}()
		require.Eventually(t, func() bool { return repo.callCount() == 2 }, time.Second, time.Millisecond)

		c.Clear()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("load was not cancelled")
		}
		st := c.Store().Snapshot()
		assert.Empty(t, st.Photos)
		assert.False(t, st.LoadingMore)
		assert.Empty(t, st.Error)
	})

	t.Run("controller stays usable after clear", func(t *testing.T) {
		c, _, _, _ := setupController(t, makePhotos("p", 3), "tok")
		c.Clear()

		require.NoError(t, c.LoadInitialPhotos(context.Background()))

		assert.Len(t, c.Store().Snapshot().Photos, 3)
	})

	t.Run("upload finishing after clear is not added", func(t *testing.T) {
		c, repo, _, _ := setupController(t, nil, "tok")
		repo.uploadGate = make(chan struct{})

		done := make(chan error, 1)
		go func() {
			_, err := c.UploadPhoto(context.Background(), domain.Upload{Filename: "a.jpg", Content: strings.NewReader("x")}, nil)
			done <- err
		}()
		require.Eventually(t, func() bool {
			repo.mu.Lock()
			defer repo.mu.Unlock()
			return repo.uploads == 1
		}, time.Second, time.Millisecond)

		c.Clear()
		close(repo.uploadGate)

		require.NoError(t, <-done)
		assert.Empty(t, c.Store().Snapshot().Photos)
	})
}

func TestController_UploadPhoto(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		c, repo, _, _ := setupController(t, nil, "")

		_, err := c.UploadPhoto(context.Background(), domain.Upload{Filename: "a.jpg"}, nil)

		assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
		assert.Equal(t, 0, repo.uploads)
	})

	t.Run("prepends the uploaded photo", func(t *testing.T) {
		c, repo, _, _ := setupController(t, makePhotos("p", 3), "tok")
		require.NoError(t, c.LoadInitialPhotos(context.Background()))

		var progress []int
		photo, err := c.UploadPhoto(context.Background(), domain.Upload{Filename: "new.jpg", Content: strings.NewReader("x")},
			func(pct int) { progress = append(progress, pct) })

		require.NoError(t, err)
		st := c.Store().Snapshot()
		assert.Equal(t, photo.ID, st.Photos[0].ID)
		assert.Equal(t, 4, st.TotalCount)
		assert.Equal(t, []int{0, 100}, progress)
		assert.Equal(t, "tok", repo.lastToken)
	})

	t.Run("failure propagates and leaves the list alone", func(t *testing.T) {
		c, repo, _, _ := setupController(t, makePhotos("p", 3), "tok")
		require.NoError(t, c.LoadInitialPhotos(context.Background()))
		repo.uploadErr = domain.ErrBadRequest

		_, err := c.UploadPhoto(context.Background(), domain.Upload{Filename: "a.txt"}, nil)

		assert.ErrorIs(t, err, domain.ErrBadRequest)
		st := c.Store().Snapshot()
		assert.Len(t, st.Photos, 3)
		assert.Empty(t, st.Error, "action failures are returned, not stored")
	})
}

func TestController_DeletePhoto(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		c, repo, _, _ := setupController(t, nil, "")

		err := c.DeletePhoto(context.Background(), "p0")

		assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
		assert.Empty(t, repo.deletes)
	})

	t.Run("removes the photo and its cached bytes", func(t *testing.T) {
		c, repo, _, cache := setupController(t, makePhotos("p", 3), "tok")
		require.NoError(t, c.LoadInitialPhotos(context.Background()))
		require.NoError(t, cache.Put("p1", []byte("bytes")))

		require.NoError(t, c.DeletePhoto(context.Background(), "p1"))

		assert.Equal(t, []string{"p1"}, repo.deletes)
		st := c.Store().Snapshot()
		assert.Len(t, st.Photos, 2)
		assert.Equal(t, 2, st.TotalCount)
		_, ok := cache.Get("p1")
		assert.False(t, ok)
	})

	t.Run("failure keeps the photo", func(t *testing.T) {
		c, repo, _, _ := setupController(t, makePhotos("p", 3), "tok")
		require.NoError(t, c.LoadInitialPhotos(context.Background()))
		repo.deleteErr = domain.ErrForbidden

		err := c.DeletePhoto(context.Background(), "p1")

		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Len(t, c.Store().Snapshot().Photos, 3)
	})
}

func TestController_FetchAndDownload(t *testing.T) {
	t.Run("fetch caches bytes", func(t *testing.T) {
		c, repo, _, _ := setupController(t, nil, "tok")
		repo.bytes["p1"] = []byte("jpeg")

		first, err := c.FetchImage(context.Background(), "p1")
		require.NoError(t, err)
		second, err := c.FetchImage(context.Background(), "p1")
		require.NoError(t, err)

		assert.Equal(t, []byte("jpeg"), first)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, repo.fetches)
	})

	t.Run("fetch without a token fails locally", func(t *testing.T) {
		c, repo, _, _ := setupController(t, nil, "")

		_, err := c.FetchImage(context.Background(), "p1")

		assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
		assert.Equal(t, 0, repo.fetches)
	})

	t.Run("cached bytes are not served once signed out", func(t *testing.T) {
		c, repo, session, cache := setupController(t, nil, "tok")
		require.NoError(t, cache.Put("p1", []byte("private")))

		session.mu.Lock()
		session.token = ""
		session.mu.Unlock()

		data, err := c.FetchImage(context.Background(), "p1")

		assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
		assert.Nil(t, data)
		assert.Equal(t, 0, repo.fetches)
	})

	t.Run("download saves under the default name", func(t *testing.T) {
		c, repo, _, _ := setupController(t, makePhotos("p", 1), "tok")
		require.NoError(t, c.LoadInitialPhotos(context.Background()))
		repo.bytes["p0"] = []byte("jpeg")
		before := c.Store().Snapshot()

		path, err := c.DownloadPhoto(context.Background(), "p0", "")

		require.NoError(t, err)
		assert.Equal(t, "photo-p0", filepath.Base(path))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg"), data)
		assert.Equal(t, before.Version, c.Store().Version(), "download does not touch the list")
	})

	t.Run("download requires a session", func(t *testing.T) {
		c, _, _, _ := setupController(t, nil, "")

		_, err := c.DownloadPhoto(context.Background(), "p0", "a.jpg")

		assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	})
}

func TestController_RefreshAndSignOut(t *testing.T) {
	t.Run("refresh is gated by the session", func(t *testing.T) {
		c, repo, _, _ := setupController(t, makePhotos("p", 3), "")

		require.NoError(t, c.Refresh(context.Background()))

		assert.Equal(t, 0, repo.callCount())
	})

	t.Run("refresh reloads the first page", func(t *testing.T) {
		c, repo, _, _ := setupController(t, makePhotos("p", 30), "tok")
		require.NoError(t, c.LoadInitialPhotos(context.Background()))
		_, err := c.LoadMorePhotos(context.Background())
		require.NoError(t, err)

		require.NoError(t, c.Refresh(context.Background()))

		st := c.Store().Snapshot()
		assert.Len(t, st.Photos, 20)
		assert.Equal(t, 0, st.CurrentPage)
		assert.Equal(t, 0, repo.calls[2].offset)
	})

	t.Run("sign out clears list and cache", func(t *testing.T) {
		c, _, session, cache := setupController(t, makePhotos("p", 3), "tok")
		require.NoError(t, c.LoadInitialPhotos(context.Background()))
		require.NoError(t, cache.Put("p0", []byte("x")))

		require.NoError(t, c.SignOut(context.Background()))

		assert.Empty(t, c.Store().Snapshot().Photos)
		assert.Equal(t, 0, cache.Len())
		assert.Equal(t, 1, session.signOuts)
		assert.False(t, c.Session().IsSignedIn())
	})
}

func TestController_AgainstPhotoService(t *testing.T) {
	srv := mockserver.New([]byte("secret"), log.NullLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for _, p := range makePhotos("seed", 22) {
		srv.Seed("alice", domain.Photo{OriginalName: p.OriginalName, UploadDate: p.UploadDate}, []byte(p.ID))
	}
	token, err := srv.IssueToken("alice", "Alice", time.Hour)
	require.NoError(t, err)

	client := photoapi.NewClient(ts.URL, log.NullLogger())
	session := auth.NewStaticSession(token)
	c := NewController(NewStore(client, log.NullLogger()), client, session,
		WithLogger(log.NullLogger()), WithSaver(NewSaver(t.TempDir())))
	ctx := context.Background()

	require.NoError(t, c.LoadInitialPhotos(ctx))
	issued, err := c.LoadMorePhotos(ctx)
	require.NoError(t, err)
	require.True(t, issued)

	st := c.Store().Snapshot()
	assert.Len(t, st.Photos, 22)
	assert.Equal(t, 22, st.TotalCount)
	assert.False(t, st.HasMore)

	uploaded, err := c.UploadPhoto(ctx, domain.Upload{Filename: "new.png", Content: strings.NewReader("png")}, nil)
	require.NoError(t, err)
	assert.Equal(t, uploaded.ID, c.Store().Snapshot().Photos[0].ID)

	path, err := c.DownloadPhoto(ctx, uploaded.ID, uploaded.OriginalName)
	require.NoError(t, err)
	assert.Equal(t, "new.png", filepath.Base(path))

	require.NoError(t, c.DeletePhoto(ctx, uploaded.ID))
	assert.Equal(t, 22, srv.Count("alice"))

	err = c.DeletePhoto(ctx, uploaded.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Photo not found.", domain.UserMessage(err))
}
