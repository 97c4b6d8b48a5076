package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AuthMode selects how the client obtains bearer tokens
type AuthMode string

const (
	// AuthModeToken uses a bearer token stored in the config file
	AuthModeToken AuthMode = "token"
	// AuthModeOAuth2 exchanges a refresh token at the identity provider
	AuthModeOAuth2 AuthMode = "oauth2"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Gallery   GalleryConfig   `mapstructure:"gallery"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds photo service configuration
type ServerConfig struct {
	URL            string `mapstructure:"url"`             // API base URL, e.g. http://localhost:8000
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // Per-request timeout
}

// AuthConfig holds identity provider configuration
type AuthConfig struct {
	Mode         AuthMode `mapstructure:"mode"`
	Token        string   `mapstructure:"token"`         // token mode
	ClientID     string   `mapstructure:"client_id"`     // oauth2 mode
	ClientSecret string   `mapstructure:"client_secret"` // oauth2 mode, optional
	TokenURL     string   `mapstructure:"token_url"`     // oauth2 mode
	RefreshToken string   `mapstructure:"refresh_token"` // oauth2 mode
	Scopes       []string `mapstructure:"scopes"`
}

// GalleryConfig holds gallery preferences
type GalleryConfig struct {
	Sort        string `mapstructure:"sort"`         // "default", "date:desc", "size:asc", ...
	GroupBy     string `mapstructure:"group_by"`     // "date", "month" or "year"
	Timezone    string `mapstructure:"timezone"`     // IANA name; empty = local
	DownloadDir string `mapstructure:"download_dir"` // Where downloads are saved
	Columns     int    `mapstructure:"columns"`      // Grid columns
}

// CacheConfig holds image cache configuration
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File      string `mapstructure:"file"`
	Level     string `mapstructure:"level"`
	MaxSizeMB int    `mapstructure:"max_size_mb"` // Rotated at startup past this size; 0 = never
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"` // Empty disables tracing
	ServiceName  string `mapstructure:"service_name"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:            "",
			TimeoutSeconds: 30,
		},
		Auth: AuthConfig{
			Mode: AuthModeToken,
		},
		Gallery: GalleryConfig{
			Sort:        "default",
			GroupBy:     "date",
			DownloadDir: defaultDownloadPath(),
			Columns:     4,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     defaultCachePath(),
		},
		Logging: LoggingConfig{
			File:      defaultLogPath(),
			Level:     "INFO",
			MaxSizeMB: 10,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "photure",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "photure", "photure.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "photure", "photure.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "photure")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "photure")
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "photure", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "photure", "cache")
	}
}

func defaultDownloadPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Downloads")
}

// LoadConfig loads configuration from .env, the config file and environment
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.GetViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(defaultConfigPath())
	v.AddConfigPath(".")

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	// Environment variable overrides, e.g. PHOTURE_SERVER_URL
	v.SetEnvPrefix("PHOTURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// bindEnv registers every key so AutomaticEnv also applies to Unmarshal,
// which only sees keys viper already knows about
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"server.url", "server.timeout_seconds",
		"auth.mode", "auth.token", "auth.client_id", "auth.client_secret",
		"auth.token_url", "auth.refresh_token",
		"gallery.sort", "gallery.group_by", "gallery.timezone",
		"gallery.download_dir", "gallery.columns",
		"cache.enabled", "cache.dir",
		"logging.file", "logging.level", "logging.max_size_mb",
		"telemetry.otlp_endpoint", "telemetry.service_name",
	} {
		_ = v.BindEnv(key)
	}
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	return saveTo(viper.GetViper(), defaultConfigPath(), cfg)
}

func saveTo(v *viper.Viper, dir string, cfg *Config) error {
	// Ensure config directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to keep snake_case key names
	v.Set("server.url", cfg.Server.URL)
	v.Set("server.timeout_seconds", cfg.Server.TimeoutSeconds)

	v.Set("auth.mode", string(cfg.Auth.Mode))
	v.Set("auth.token", cfg.Auth.Token)
	v.Set("auth.client_id", cfg.Auth.ClientID)
	v.Set("auth.client_secret", cfg.Auth.ClientSecret)
	v.Set("auth.token_url", cfg.Auth.TokenURL)
	v.Set("auth.refresh_token", cfg.Auth.RefreshToken)
	v.Set("auth.scopes", cfg.Auth.Scopes)

	v.Set("gallery.sort", cfg.Gallery.Sort)
	v.Set("gallery.group_by", cfg.Gallery.GroupBy)
	v.Set("gallery.timezone", cfg.Gallery.Timezone)
	v.Set("gallery.download_dir", cfg.Gallery.DownloadDir)
	v.Set("gallery.columns", cfg.Gallery.Columns)

	v.Set("cache.enabled", cfg.Cache.Enabled)
	v.Set("cache.dir", cfg.Cache.Dir)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.max_size_mb", cfg.Logging.MaxSizeMB)

	v.Set("telemetry.otlp_endpoint", cfg.Telemetry.OTLPEndpoint)
	v.Set("telemetry.service_name", cfg.Telemetry.ServiceName)

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ClearAuthConfig removes stored credentials while preserving the server URL
// and all other settings
func ClearAuthConfig() error {
	v := viper.GetViper()
	v.Set("auth.token", "")
	v.Set("auth.refresh_token", "")

	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the server URL and credentials are set
func (c *Config) IsConfigured() bool {
	if c.Server.URL == "" {
		return false
	}
	switch c.Auth.Mode {
	case AuthModeOAuth2:
		return c.Auth.TokenURL != "" && c.Auth.ClientID != "" && c.Auth.RefreshToken != ""
	default:
		return c.Auth.Token != ""
	}
}

// GetCachePath returns the cache directory path, or "" when caching is off
func (c *Config) GetCachePath() string {
	if !c.Cache.Enabled {
		return ""
	}
	return c.Cache.Dir
}
