package mockserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccessTokenTTL is the lifetime of tokens issued by the token endpoint
const AccessTokenTTL = 15 * time.Minute

type refreshGrant struct {
	userID string
	name   string
}

// handleToken is a minimal OAuth2 token endpoint supporting the password
// and refresh_token grants. Any non-empty password is accepted. Refresh
// tokens rotate on every use.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondOAuthError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	var grant refreshGrant
	switch r.PostForm.Get("grant_type") {
	case "password":
		username := strings.TrimSpace(r.PostForm.Get("username"))
		if username == "" || r.PostForm.Get("password") == "" {
			respondOAuthError(w, http.StatusBadRequest, "invalid_grant")
			return
		}
		grant = refreshGrant{userID: username, name: username}

	case "refresh_token":
		rt := r.PostForm.Get("refresh_token")
		s.mu.Lock()
		g, ok := s.refreshTokens[rt]
		delete(s.refreshTokens, rt)
		s.mu.Unlock()
		if !ok {
			respondOAuthError(w, http.StatusBadRequest, "invalid_grant")
			return
		}
		grant = g

	default:
		respondOAuthError(w, http.StatusBadRequest, "unsupported_grant_type")
		return
	}

	access, err := s.IssueToken(grant.userID, grant.name, AccessTokenTTL)
	if err != nil {
		respondOAuthError(w, http.StatusInternalServerError, "server_error")
		return
	}
	refresh := s.NewRefreshToken(grant.userID, grant.name)

	s.logger.Info("token issued", "user_id", grant.userID, "grant_type", r.PostForm.Get("grant_type"))
	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"token_type":    "Bearer",
		"expires_in":    int(AccessTokenTTL.Seconds()),
		"refresh_token": refresh,
	})
}

// NewRefreshToken registers a refresh token for userID
func (s *Server) NewRefreshToken(userID, name string) string {
	rt := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[rt] = refreshGrant{userID: userID, name: name}
	return rt
}

func respondOAuthError(w http.ResponseWriter, status int, code string) {
	respondJSON(w, status, map[string]string{"error": code})
}
