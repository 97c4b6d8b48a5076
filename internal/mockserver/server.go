// Package mockserver is an in-memory implementation of the photo service
// REST API. It backs the client tests and the photure-mock command.
package mockserver

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/mmcdole/photure/internal/domain"
)

const (
	defaultLimit  = 20
	maxUploadSize = 50 << 20
	// naiveLayout is how the service serializes upload dates: UTC, no offset
	naiveLayout = "2006-01-02T15:04:05.000000"
)

type storedPhoto struct {
	photo domain.Photo
	data  []byte
	seq   int
}

// Server holds the photos of every user in memory
type Server struct {
	mu            sync.RWMutex
	photos        map[string]*storedPhoto
	refreshTokens map[string]refreshGrant
	seq           int
	failNext      []int
	delay         time.Duration

	secret []byte
	logger *slog.Logger
	now    func() time.Time
	router chi.Router
}

// Option configures a Server
type Option func(*Server)

// WithClock replaces the clock used to stamp uploads
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithLatency delays every API response
func WithLatency(d time.Duration) Option {
	return func(s *Server) {
		s.delay = d
	}
}

// New creates a server that accepts HS256 tokens signed with secret
func New(secret []byte, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		photos:        make(map[string]*storedPhoto),
		refreshTokens: make(map[string]refreshGrant),
		secret:        secret,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler for the API
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(s.injectFailures)

	r.Post("/oauth/token", s.handleToken)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.handlePing)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/photos", s.handleListPhotos)
			r.Post("/upload", s.handleUpload)
			r.Delete("/photos/{id}", s.handleDeletePhoto)
			r.Get("/serve/{id}", s.handleServePhoto)
		})
	})
	return r
}

// FailNext makes the next API request fail with the given status
func (s *Server) FailNext(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, status)
}

// Seed stores a photo for userID and returns its metadata. Missing fields
// are filled in the way an upload would fill them.
func (s *Server) Seed(userID string, photo domain.Photo, data []byte) domain.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.Filename == "" {
		photo.Filename = photo.ID + filepath.Ext(photo.OriginalName)
	}
	if photo.ContentType == "" {
		photo.ContentType = "image/jpeg"
	}
	if photo.Size == 0 {
		photo.Size = int64(len(data))
	}
	if photo.UploadDate.IsZero() {
		photo.UploadDate = domain.NewTimestamp(s.now().UTC())
	}
	photo.UserID = userID
	photo.URL = "/api/serve/" + photo.ID

	s.seq++
	s.photos[photo.ID] = &storedPhoto{photo: photo, data: data, seq: s.seq}
	return photo
}

// Count returns how many photos userID owns
func (s *Server) Count(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.userPhotos(userID))
}

// userPhotos returns userID's photos newest first. Caller holds the lock.
func (s *Server) userPhotos(userID string) []*storedPhoto {
	var out []*storedPhoto
	for _, sp := range s.photos {
		if sp.photo.UserID == userID {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].photo.UploadedAt(), out[j].photo.UploadedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].seq > out[j].seq
	})
	return out
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Photure API is running"})
}

func (s *Server) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", defaultLimit)
	if skip < 0 || limit < 0 {
		respondError(w, http.StatusUnprocessableEntity, "skip and limit must be non-negative")
		return
	}

	s.mu.RLock()
	all := s.userPhotos(userID)
	photos := make([]photoJSON, 0, limit)
	for i := skip; i < len(all) && len(photos) < limit; i++ {
		photos = append(photos, toJSON(all[i].photo))
	}
	total := len(all)
	s.mu.RUnlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"photos": photos,
		"total":  total,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "Request must be multipart/form-data.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Field required: file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(w, http.StatusBadRequest, "Only image files are allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	id := uuid.NewString()
	photo := s.Seed(userID, domain.Photo{
		ID:           id,
		Filename:     id + strings.ToLower(filepath.Ext(header.Filename)),
		OriginalName: header.Filename,
		ContentType:  contentType,
		Size:         int64(len(data)),
	}, data)

	s.logger.Info("photo uploaded", "user_id", userID, "id", photo.ID, "size", photo.Size)
	respondJSON(w, http.StatusOK, toJSON(photo))
}

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	sp, ok := s.photos[id]
	if ok && sp.photo.UserID == userID {
		delete(s.photos, id)
	}
	s.mu.Unlock()

	if !ok || sp.photo.UserID != userID {
		respondError(w, http.StatusNotFound, "Photo not found")
		return
	}

	s.logger.Info("photo deleted", "user_id", userID, "id", id)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Photo deleted successfully"})
}

func (s *Server) handleServePhoto(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	sp, ok := s.photos[id]
	owned := ok && sp.photo.UserID == userID
	var data []byte
	var contentType string
	if owned {
		data = sp.data
		contentType = sp.photo.ContentType
	}
	s.mu.RUnlock()

	if !owned {
		respondError(w, http.StatusNotFound, "Photo not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// injectFailures answers with a queued failure status and applies latency
func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := 0
		if len(s.failNext) > 0 {
			status = s.failNext[0]
			s.failNext = s.failNext[1:]
		}
		delay := s.delay
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if status != 0 {
			respondError(w, status, fmt.Sprintf("injected failure %d", status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// photoJSON mirrors the service's serialization, with naive UTC dates
type photoJSON struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size"`
	UserID       string `json:"user_id"`
	UploadDate   string `json:"upload_date"`
	URL          string `json:"url"`
}

func toJSON(p domain.Photo) photoJSON {
	return photoJSON{
		ID:           p.ID,
		Filename:     p.Filename,
		OriginalName: p.OriginalName,
		ContentType:  p.ContentType,
		Size:         p.Size,
		UserID:       p.UserID,
		UploadDate:   p.UploadedAt().UTC().Format(naiveLayout),
		URL:          p.URL,
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes the service's {"detail": ...} error envelope
func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
