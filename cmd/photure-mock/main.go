package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mmcdole/photure/internal/domain"
	"github.com/mmcdole/photure/internal/log"
	"github.com/mmcdole/photure/internal/mockserver"
	"github.com/mmcdole/photure/internal/photoapi"
)

func main() {
	var (
		addr     = flag.String("addr", "localhost:8000", "listen address")
		secret   = flag.String("secret", "photure-dev-secret", "HS256 signing secret")
		user     = flag.String("user", "demo", "user ID the printed tokens belong to")
		seedDir  = flag.String("seed", "", "directory of images to preload for the user")
		latency  = flag.Duration("latency", 0, "delay added to every API response")
		tokenTTL = flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed access token")
		level    = flag.String("log-level", "INFO", "log level")
	)
	flag.Parse()

	if err := run(*addr, *secret, *user, *seedDir, *latency, *tokenTTL, *level); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, secret, user, seedDir string, latency, tokenTTL time.Duration, level string) error {
	logger := log.NewLogger(os.Stderr, level)

	srv := mockserver.New([]byte(secret), logger, mockserver.WithLatency(latency))

	if seedDir != "" {
		n, err := seed(srv, user, seedDir)
		if err != nil {
			return err
		}
		logger.Info("seeded photos", "user", user, "count", n, "dir", seedDir)
	}

	token, err := srv.IssueToken(user, user, tokenTTL)
	if err != nil {
		return err
	}

	fmt.Printf("Photo service listening on http://%s\n\n", addr)
	fmt.Printf("Access token for %q (expires in %s):\n  %s\n\n", user, tokenTTL, token)
	fmt.Printf("OAuth2 token endpoint: http://%s/oauth/token\n", addr)
	fmt.Printf("Refresh token for %q:\n  %s\n\n", user, srv.NewRefreshToken(user, user))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// seed loads the images in dir, dated by their modification time
func seed(srv *mockserver.Server, user, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("cannot read seed directory: %w", err)
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return n, fmt.Errorf("cannot read %s: %w", path, err)
		}
		contentType := photoapi.DetectContentType(e.Name(), data)
		if !strings.HasPrefix(contentType, "image/") {
			continue
		}

		photo := domain.Photo{OriginalName: e.Name(), ContentType: contentType}
		if info, err := e.Info(); err == nil {
			photo.UploadDate = domain.NewTimestamp(info.ModTime().UTC())
		}
		srv.Seed(user, photo, data)
		n++
	}
	return n, nil
}
