// Package auth provides the identity collaborator: sessions that resolve a
// bearer token per request, and the interactive sign-in flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/photure/internal/config"
	"github.com/mmcdole/photure/internal/domain"
	"golang.org/x/oauth2"
)

// SignOutFunc runs after a session has dropped its credentials
type SignOutFunc func(ctx context.Context) error

// Option configures a session
type Option func(*options)

type options struct {
	logger     *slog.Logger
	onSignOut  SignOutFunc
	onRotate   func(*oauth2.Token)
	now        func() time.Time
	httpClient *http.Client
}

// WithLogger sets the session logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSignOut registers a hook that runs on SignOut, typically to erase
// stored credentials
func WithSignOut(fn SignOutFunc) Option {
	return func(o *options) {
		o.onSignOut = fn
	}
}

// WithTokenRotation registers a hook called whenever the identity provider
// hands out a new refresh token
func WithTokenRotation(fn func(*oauth2.Token)) Option {
	return func(o *options) {
		o.onRotate = fn
	}
}

// WithClock replaces the clock used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithHTTPClient sets the client used to reach the token endpoint
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// StaticSession serves a bearer token obtained out of band
type StaticSession struct {
	mu    sync.RWMutex
	token string
	user  domain.User
	opts  options
}

// NewStaticSession creates a session for token; an empty token is signed out
func NewStaticSession(token string, opts ...Option) *StaticSession {
	s := &StaticSession{opts: newOptions(opts)}
	s.setToken(token)
	return s
}

func (s *StaticSession) setToken(token string) {
	s.token = token
	s.user = domain.User{}
	if token == "" {
		return
	}
	if user, err := UserFromToken(token); err == nil {
		s.user = user
	} else {
		s.opts.logger.Debug("token is not a JWT, identity unknown", "error", err)
	}
}

// SignIn replaces the session token
func (s *StaticSession) SignIn(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setToken(token)
}

func (s *StaticSession) IsSignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the stored token, or an error once it has expired
func (s *StaticSession) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", nil
	}
	if !s.user.ExpiresAt.IsZero() && !s.opts.now().Before(s.user.ExpiresAt) {
		return "", fmt.Errorf("%w: token expired at %s", domain.ErrAuthRequired, s.user.ExpiresAt.Format(time.RFC3339))
	}
	return s.token, nil
}

func (s *StaticSession) User() domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *StaticSession) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.setToken("")
	s.mu.Unlock()

	s.opts.logger.Info("signed out")
	if s.opts.onSignOut != nil {
		return s.opts.onSignOut(ctx)
	}
	return nil
}

// OAuthSession resolves access tokens from an OAuth2 refresh token,
// refreshing them when they expire
type OAuthSession struct {
	mu           sync.RWMutex
	source       oauth2.TokenSource
	refreshToken string
	user         domain.User
	opts         options
}

// NewOAuthSession creates a session from a token previously issued by cfg's
// provider. A nil token or one without a refresh token is signed out.
func NewOAuthSession(cfg *oauth2.Config, tok *oauth2.Token, opts ...Option) *OAuthSession {
	s := &OAuthSession{opts: newOptions(opts)}
	if tok == nil || (tok.RefreshToken == "" && tok.AccessToken == "") {
		return s
	}

	ctx := context.Background()
	if s.opts.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.opts.httpClient)
	}
	s.source = oauth2.ReuseTokenSource(tok, cfg.TokenSource(ctx, tok))
	s.refreshToken = tok.RefreshToken
	if tok.AccessToken != "" {
		s.updateUser(tok.AccessToken)
	}
	return s
}

func (s *OAuthSession) IsSignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source != nil
}

// Token returns a valid access token, refreshing it when needed
func (s *OAuthSession) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	source := s.source
	s.mu.RUnlock()
	if source == nil {
		return "", nil
	}

	tok, err := source.Token()
	if err != nil {
		return "", mapTokenError(err)
	}

	s.mu.Lock()
	rotated := tok.RefreshToken != "" && tok.RefreshToken != s.refreshToken
	if rotated {
		s.refreshToken = tok.RefreshToken
	}
	s.updateUser(tok.AccessToken)
	s.mu.Unlock()

	if rotated {
		s.opts.logger.Debug("refresh token rotated")
		if s.opts.onRotate != nil {
			s.opts.onRotate(tok)
		}
	}
	return tok.AccessToken, nil
}

// updateUser refreshes the cached identity. Caller holds the lock or owns s.
func (s *OAuthSession) updateUser(accessToken string) {
	if user, err := UserFromToken(accessToken); err == nil {
		s.user = user
	}
}

func (s *OAuthSession) User() domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *OAuthSession) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.source = nil
	s.refreshToken = ""
	s.user = domain.User{}
	s.mu.Unlock()

	s.opts.logger.Info("signed out")
	if s.opts.onSignOut != nil {
		return s.opts.onSignOut(ctx)
	}
	return nil
}

// mapTokenError classifies a token endpoint failure
func mapTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil && re.Response.StatusCode >= 500 {
			return fmt.Errorf("%w: token refresh failed: %v", domain.ErrServer, err)
		}
		return fmt.Errorf("%w: token refresh rejected: %v", domain.ErrAuthRequired, err)
	}
	return fmt.Errorf("%w: token refresh failed: %v", domain.ErrNetwork, err)
}

// OAuthConfig builds the OAuth2 client configuration from the auth settings
func OAuthConfig(cfg *config.AuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// NewSession creates the session selected by the auth settings
func NewSession(cfg *config.AuthConfig, opts ...Option) (domain.Session, error) {
	switch cfg.Mode {
	case config.AuthModeToken, "":
		return NewStaticSession(cfg.Token, opts...), nil
	case config.AuthModeOAuth2:
		if cfg.TokenURL == "" {
			return nil, errors.New("auth.token_url is required in oauth2 mode")
		}
		var tok *oauth2.Token
		if cfg.RefreshToken != "" {
			tok = &oauth2.Token{RefreshToken: cfg.RefreshToken}
		}
		return NewOAuthSession(OAuthConfig(cfg), tok, opts...), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}
