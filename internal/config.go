package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/reftree/internal/builder"
	"github.com/starford/reftree/internal/index"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Content ContentConfig     `yaml:"content"`
	Build   BuildConfig       `yaml:"build"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.Build.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// ContentConfig locates the content tree and its root documents.
type ContentConfig struct {
	Root string `yaml:"root"`
	// Pattern is a doublestar glob, relative to Root, matching root documents.
	Pattern string `yaml:"pattern"`
	// WatchDebounce is how long the watcher waits for a burst of changes to settle.
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Pattern, validation.Required, validation.By(isGlob)),
		validation.Field(&c.WatchDebounce, validation.Min(time.Duration(0))),
	)
}

func isGlob(value interface{}) error {
	p, _ := value.(string)
	if !doublestar.ValidatePattern(p) {
		return fmt.Errorf("invalid glob pattern %q", p)
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("pattern %q must be relative to the content root", p)
	}
	return nil
}

// BuildConfig holds site-build output configuration.
type BuildConfig struct {
	Dir string `yaml:"dir"`
	// AssetURLPrefix is the public URL published assets are served under.
	AssetURLPrefix string `yaml:"asset_url_prefix"`
	Output         string `yaml:"output"`
}

// Validate validates the build configuration.
func (c *BuildConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.AssetURLPrefix, validation.Required, is.URL),
		validation.Field(&c.Output, validation.Required, validation.By(isFileName)),
	)
}

func isFileName(value interface{}) error {
	name, _ := value.(string)
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("output %q must be a file name", name)
	}
	return nil
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			Root:          "./content",
			Pattern:       builder.DefaultPattern,
			WatchDebounce: index.DefaultDebounce,
		},
		Build: BuildConfig{
			Dir:            "./build",
			AssetURLPrefix: "http://localhost:8080/assets",
			Output:         builder.DefaultOutputName,
		},
		SQLite: SQLiteConfig{
			Path: "./reftree.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
