package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/mmcdole/photure/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/term"
)

const signInTimeout = 30 * time.Second

// Flow signs a user in interactively on the terminal, before the TUI starts
type Flow struct {
	logger     *slog.Logger
	in         *bufio.Reader
	out        io.Writer
	readSecret func() (string, error)
	httpClient *http.Client
}

// NewFlow creates a sign-in flow reading from the process terminal
func NewFlow(logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{
		logger: logger,
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		readSecret: func() (string, error) {
			b, err := term.ReadPassword(int(syscall.Stdin))
			return string(b), err
		},
		httpClient: &http.Client{Timeout: signInTimeout},
	}
}

// Run prompts for credentials for cfg.Mode and stores what it obtains in cfg.
// The caller persists cfg.
func (f *Flow) Run(ctx context.Context, cfg *config.AuthConfig) error {
	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, "Photure Sign In")
	fmt.Fprintln(f.out, "━━━━━━━━━━━━━━━")

	switch cfg.Mode {
	case config.AuthModeOAuth2:
		return f.runPassword(ctx, cfg)
	default:
		return f.runToken(cfg)
	}
}

func (f *Flow) runToken(cfg *config.AuthConfig) error {
	fmt.Fprint(f.out, "Access token: ")
	token, err := f.readSecret()
	fmt.Fprintln(f.out)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("no token entered")
	}

	cfg.Mode = config.AuthModeToken
	cfg.Token = token

	if user, err := UserFromToken(token); err == nil && user.ID != "" {
		fmt.Fprintf(f.out, "Signed in as %s\n", user.Name)
	}
	return nil
}

// runPassword performs the OAuth2 resource owner password grant
func (f *Flow) runPassword(ctx context.Context, cfg *config.AuthConfig) error {
	if cfg.TokenURL == "" {
		tokenURL, err := f.prompt("Token endpoint URL: ")
		if err != nil {
			return err
		}
		cfg.TokenURL = tokenURL
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "photure-cli"
	}

	username, err := f.prompt("Username: ")
	if err != nil {
		return err
	}

	fmt.Fprint(f.out, "Password: ")
	password, err := f.readSecret()
	fmt.Fprintln(f.out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, "Authenticating...")

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	tok, err := OAuthConfig(cfg).PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		f.logger.Error("password grant failed", "error", err)
		return mapTokenError(err)
	}
	if tok.RefreshToken == "" {
		return errors.New("identity provider did not return a refresh token")
	}

	cfg.RefreshToken = tok.RefreshToken
	cfg.Token = ""

	name := username
	if user, err := UserFromToken(tok.AccessToken); err == nil && user.Name != "" {
		name = user.Name
	}
	fmt.Fprintln(f.out)
	fmt.Fprintf(f.out, "Signed in as %s\n", name)
	return nil
}

// PromptServerURL asks for the photo service URL
func (f *Flow) PromptServerURL() (string, error) {
	return f.prompt("Enter your photo service URL (e.g., http://localhost:8000): ")
}

func (f *Flow) prompt(label string) (string, error) {
	fmt.Fprint(f.out, label)
	line, err := f.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("no value entered for %q", strings.TrimSuffix(strings.TrimSpace(label), ":"))
	}
	return line, nil
}
