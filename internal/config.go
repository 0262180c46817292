package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/scriptor/internal/autosave"
	"github.com/starford/scriptor/internal/compress"
	"github.com/starford/scriptor/internal/editor"
	"github.com/starford/scriptor/internal/ingest"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Editor EditorConfig      `yaml:"editor"`
	Events EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Editor.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the note vault directory and the compression codec new
// note files are written with.
type VaultConfig struct {
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Compression, validation.In(compress.None, compress.Gzip, compress.LZ4, compress.Brotli)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EditorConfig tunes editing sessions.
type EditorConfig struct {
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
	SaveTimeout      time.Duration `yaml:"save_timeout"`
	HistoryLimit     int           `yaml:"history_limit"`
	MaxImageBytes    int64         `yaml:"max_image_bytes"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	FlushOnClose     bool          `yaml:"flush_on_close"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AutosaveInterval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.SaveTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.HistoryLimit, validation.Min(0), validation.Max(10000)),
		validation.Field(&c.MaxImageBytes, validation.Required, validation.Min(int64(1)), validation.Max(int64(100<<20))),
		validation.Field(&c.FetchTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.IdleTimeout, validation.Min(time.Duration(0))),
	)
}

// Options converts the configuration into session options.
func (c *EditorConfig) Options() editor.Options {
	return editor.Options{
		AutosaveInterval: c.AutosaveInterval,
		SaveTimeout:      c.SaveTimeout,
		HistoryLimit:     c.HistoryLimit,
		MaxImageBytes:    c.MaxImageBytes,
		FetchTimeout:     c.FetchTimeout,
		FlushOnClose:     c.FlushOnClose,
		IdleTimeout:      c.IdleTimeout,
	}
}

// EventsConfig holds SSE configuration.
type EventsConfig struct {
	// Throttle is the minimum gap between notes.updated events.
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:        "./vault",
			Compression: compress.None,
		},
		SQLite: SQLiteConfig{
			Path: "./scriptor.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Editor: EditorConfig{
			AutosaveInterval: autosave.DefaultInterval,
			SaveTimeout:      10 * time.Second,
			HistoryLimit:     100,
			MaxImageBytes:    ingest.DefaultMaxBytes,
			FetchTimeout:     30 * time.Second,
			FlushOnClose:     true,
			IdleTimeout:      30 * time.Minute,
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
