package auth

import (
	"bufio"
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/photure/internal/config"
	"github.com/mmcdole/photure/internal/domain"
	"github.com/mmcdole/photure/internal/log"
	"github.com/mmcdole/photure/internal/mockserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func setupIdentityProvider(t *testing.T) (*mockserver.Server, string) {
	t.Helper()
	srv := mockserver.New([]byte("secret"), log.NullLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts.URL + "/oauth/token"
}

func TestUserFromToken(t *testing.T) {
	srv := mockserver.New([]byte("secret"), log.NullLogger())
	token, err := srv.IssueToken("u-42", "Ada", time.Hour)
	require.NoError(t, err)

	user, err := UserFromToken(token)

	require.NoError(t, err)
	assert.Equal(t, "u-42", user.ID)
	assert.Equal(t, "Ada", user.Name)
	assert.WithinDuration(t, time.Now().Add(time.Hour), user.ExpiresAt, time.Minute)

	_, err = UserFromToken("opaque-token")
	assert.Error(t, err)
}

func TestStaticSession(t *testing.T) {
	t.Run("empty token is signed out", func(t *testing.T) {
		s := NewStaticSession("")

		assert.False(t, s.IsSignedIn())
		token, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("opaque tokens are served as is", func(t *testing.T) {
		s := NewStaticSession("opaque", WithLogger(log.NullLogger()))

		assert.True(t, s.IsSignedIn())
		token, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "opaque", token)
		assert.Empty(t, s.User().ID)
	})

	t.Run("expired token requires sign in", func(t *testing.T) {
		srv := mockserver.New([]byte("secret"), log.NullLogger())
		token, err := srv.IssueToken("u-1", "U", time.Minute)
		require.NoError(t, err)

		s := NewStaticSession(token, WithClock(func() time.Time { return time.Now().Add(2 * time.Minute) }))

		_, err = s.Token(context.Background())
		assert.ErrorIs(t, err, domain.ErrAuthRequired)
	})

	t.Run("sign out drops the token and runs the hook", func(t *testing.T) {
		called := false
		s := NewStaticSession("opaque", WithSignOut(func(ctx context.Context) error {
			called = true
			return nil
		}))

		require.NoError(t, s.SignOut(context.Background()))

		assert.True(t, called)
		assert.False(t, s.IsSignedIn())
	})
}

func TestOAuthSession(t *testing.T) {
	t.Run("refreshes access tokens and reports rotation", func(t *testing.T) {
		srv, tokenURL := setupIdentityProvider(t)
		refresh := srv.NewRefreshToken("u-7", "Grace")

		var rotated []string
		cfg := &config.AuthConfig{Mode: config.AuthModeOAuth2, ClientID: "photure-cli", TokenURL: tokenURL, RefreshToken: refresh}
		session, err := NewSession(cfg, WithTokenRotation(func(tok *oauth2.Token) {
			rotated = append(rotated, tok.RefreshToken)
		}))
		require.NoError(t, err)
		require.True(t, session.IsSignedIn())

		access, err := session.Token(context.Background())
		require.NoError(t, err)

		subject, err := srv.ValidateToken(access)
		require.NoError(t, err)
		assert.Equal(t, "u-7", subject)
		assert.Equal(t, "Grace", session.User().Name)
		require.Len(t, rotated, 1)
		assert.NotEqual(t, refresh, rotated[0])

		again, err := session.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, access, again, "valid tokens are reused")
		assert.Len(t, rotated, 1)
	})

	t.Run("revoked refresh token requires sign in", func(t *testing.T) {
		_, tokenURL := setupIdentityProvider(t)
		cfg := &config.AuthConfig{Mode: config.AuthModeOAuth2, TokenURL: tokenURL, RefreshToken: "unknown"}
		session, err := NewSession(cfg)
		require.NoError(t, err)

		_, err = session.Token(context.Background())

		assert.ErrorIs(t, err, domain.ErrAuthRequired)
	})

	t.Run("no refresh token is signed out", func(t *testing.T) {
		session, err := NewSession(&config.AuthConfig{Mode: config.AuthModeOAuth2, TokenURL: "http://idp"})
		require.NoError(t, err)

		assert.False(t, session.IsSignedIn())
		token, err := session.Token(context.Background())
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("sign out stops serving tokens", func(t *testing.T) {
		srv, tokenURL := setupIdentityProvider(t)
		cfg := &config.AuthConfig{Mode: config.AuthModeOAuth2, TokenURL: tokenURL, RefreshToken: srv.NewRefreshToken("u", "u")}
		session, err := NewSession(cfg)
		require.NoError(t, err)

		require.NoError(t, session.SignOut(context.Background()))

		assert.False(t, session.IsSignedIn())
		token, err := session.Token(context.Background())
		require.NoError(t, err)
		assert.Empty(t, token)
	})
}

func TestNewSession(t *testing.T) {
	_, err := NewSession(&config.AuthConfig{Mode: "kerberos"})
	assert.Error(t, err)

	_, err = NewSession(&config.AuthConfig{Mode: config.AuthModeOAuth2})
	assert.Error(t, err)

	s, err := NewSession(&config.AuthConfig{Token: "t"})
	require.NoError(t, err)
	assert.IsType(t, &StaticSession{}, s)
}

func newTestFlow(input string, secret string) (*Flow, *bytes.Buffer) {
	out := &bytes.Buffer{}
	f := NewFlow(log.NullLogger())
	f.in = bufio.NewReader(strings.NewReader(input))
	f.out = out
	f.readSecret = func() (string, error) { return secret, nil }
	return f, out
}

func TestFlow(t *testing.T) {
	t.Run("token mode stores the pasted token", func(t *testing.T) {
		f, _ := newTestFlow("", "  pasted-token \n")
		cfg := &config.AuthConfig{Mode: config.AuthModeToken}

		require.NoError(t, f.Run(context.Background(), cfg))

		assert.Equal(t, "pasted-token", cfg.Token)
	})

	t.Run("token mode rejects an empty token", func(t *testing.T) {
		f, _ := newTestFlow("", "")
		assert.Error(t, f.Run(context.Background(), &config.AuthConfig{}))
	})

	t.Run("oauth2 mode stores the refresh token", func(t *testing.T) {
		_, tokenURL := setupIdentityProvider(t)
		f, out := newTestFlow("ada\n", "hunter2")
		cfg := &config.AuthConfig{Mode: config.AuthModeOAuth2, TokenURL: tokenURL}

		require.NoError(t, f.Run(context.Background(), cfg))

		assert.NotEmpty(t, cfg.RefreshToken)
		assert.Equal(t, "photure-cli", cfg.ClientID)
		assert.Contains(t, out.String(), "Signed in as ada")
	})

	t.Run("oauth2 mode reports rejected credentials", func(t *testing.T) {
		_, tokenURL := setupIdentityProvider(t)
		f, _ := newTestFlow("ada\n", "")
		cfg := &config.AuthConfig{Mode: config.AuthModeOAuth2, TokenURL: tokenURL}

		err := f.Run(context.Background(), cfg)

		assert.ErrorIs(t, err, domain.ErrAuthRequired)
		assert.Empty(t, cfg.RefreshToken)
	})

	t.Run("prompts for the server url", func(t *testing.T) {
		f, _ := newTestFlow("http://localhost:8000\n", "")

		url, err := f.PromptServerURL()

		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8000", url)
	})
}
