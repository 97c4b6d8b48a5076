package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/photure/internal/auth"
	"github.com/mmcdole/photure/internal/config"
	"github.com/mmcdole/photure/internal/domain"
	"github.com/mmcdole/photure/internal/gallery"
	"github.com/mmcdole/photure/internal/imagecache"
	"github.com/mmcdole/photure/internal/log"
	"github.com/mmcdole/photure/internal/photoapi"
	"github.com/mmcdole/photure/internal/telemetry"
	"github.com/mmcdole/photure/internal/tui"
	"github.com/mmcdole/photure/internal/tui/styles"
	"golang.org/x/oauth2"
)

// Version is set at build time via -ldflags
var Version = "dev"

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

func main() {
	// Handle version flag
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: photure [flags] [login|logout]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("photure %s\n", Version)
		return
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string) error {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting photure", "version", Version, "command", command)

	switch command {
	case "":
	case "login":
		return runSetupFlow(cfg, logger)
	case "logout":
		if err := logout(cfg, config.ClearAuthConfig); err != nil {
			return err
		}
		fmt.Println("✓ Signed out.")
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}

	// First run: ask for the server and credentials
	if cfg.Server.URL == "" {
		return runSetupFlow(cfg, logger)
	}

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, &cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	model, cleanup, err := buildModel(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Run the TUI
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// logout forgets the saved credentials and the photos cached for them
func logout(cfg *config.Config, clearAuth func() error) error {
	if err := clearAuth(); err != nil {
		return err
	}
	// Purge even when caching is now disabled; an earlier run may have filled it
	return imagecache.Purge(cfg.Cache.Dir, cfg.Server.URL)
}

// buildModel wires the photo service client, session, image cache and
// gallery into the TUI model
func buildModel(cfg *config.Config, logger *slog.Logger) (tui.Model, func(), error) {
	cleanup := func() {}

	sort, err := domain.ParseSortSpec(cfg.Gallery.Sort)
	if err != nil {
		return tui.Model{}, cleanup, fmt.Errorf("invalid gallery.sort: %w", err)
	}
	grouping, err := domain.ParseGrouping(cfg.Gallery.GroupBy)
	if err != nil {
		return tui.Model{}, cleanup, fmt.Errorf("invalid gallery.group_by: %w", err)
	}
	var loc *time.Location
	if cfg.Gallery.Timezone != "" {
		if loc, err = time.LoadLocation(cfg.Gallery.Timezone); err != nil {
			return tui.Model{}, cleanup, fmt.Errorf("invalid gallery.timezone: %w", err)
		}
	}

	client := photoapi.NewClient(cfg.Server.URL, logger,
		photoapi.WithTimeout(time.Duration(cfg.Server.TimeoutSeconds)*time.Second))

	session, err := auth.NewSession(&cfg.Auth,
		auth.WithLogger(logger),
		auth.WithSignOut(func(context.Context) error {
			return config.ClearAuthConfig()
		}),
		auth.WithTokenRotation(func(tok *oauth2.Token) {
			cfg.Auth.RefreshToken = tok.RefreshToken
			if err := config.SaveConfig(cfg); err != nil {
				logger.Error("failed to save rotated refresh token", "error", err)
			}
		}),
	)
	if err != nil {
		return tui.Model{}, cleanup, fmt.Errorf("failed to create session: %w", err)
	}

	opts := []gallery.ControllerOption{
		gallery.WithLogger(logger),
		gallery.WithSaver(gallery.NewSaver(cfg.Gallery.DownloadDir)),
	}
	if cfg.Cache.Enabled {
		cache, err := imagecache.New(cfg.GetCachePath(), cfg.Server.URL, imagecache.WithLogger(logger))
		if err != nil {
			// Photos still load without the cache
			logger.Warn("image cache unavailable", "error", err)
		} else {
			opts = append(opts, gallery.WithImageCache(cache))
			cleanup = func() {
				if err := cache.Close(); err != nil {
					logger.Warn("failed to close image cache", "error", err)
				}
			}
		}
	}

	store := gallery.NewStore(client, logger)
	ctrl := gallery.NewController(store, client, session, opts...)

	model := tui.NewModel(ctrl, tui.Options{
		Sort:     sort,
		Grouping: grouping,
		Location: loc,
		Columns:  cfg.Gallery.Columns,
		Logger:   logger,
	})
	return model, cleanup, nil
}

// runSetupFlow asks for the server URL when none is set, then signs in
func runSetupFlow(cfg *config.Config, logger *slog.Logger) error {
	flow := auth.NewFlow(logger)

	if cfg.Server.URL == "" {
		fmt.Println()
		fmt.Println("Welcome to Photure!")
		fmt.Println()

		// Loop until we get a reachable server URL
		for {
			serverURL, err := flow.PromptServerURL()
			if err != nil {
				return err
			}

			fmt.Println()
			client := photoapi.NewClient(serverURL, logger)
			if err := pingWithSpinner(client); err != nil {
				fmt.Printf("\n✗ Could not reach the photo service: %v\n", err)
				fmt.Println("Please check the URL and try again.")
				fmt.Println()
				continue
			}

			cfg.Server.URL = serverURL
			break
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := flow.Run(ctx, &cfg.Auth); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	fmt.Println("Run photure again to start the application.")

	return nil
}

// pingWithSpinner checks the photo service with a visual spinner
func pingWithSpinner(client *photoapi.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resultCh := make(chan error, 1)

	// Start the check in background
	go func() {
		resultCh <- client.Ping(ctx)
	}()

	// Spinner animation
	frame := 0

	// Print initial spinner
	fmt.Printf("\r%s Connecting to photo service...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-resultCh:
			// Clear spinner line
			fmt.Print(clearSpinnerLine)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Connected to %s\n", client.BaseURL())
			return nil

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Connecting to photo service...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return fmt.Errorf("connection timed out")
		}
	}
}
