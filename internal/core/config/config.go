// Package config handles configuration loading and validation for msgscope.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"

	"github.com/hay-kot/msgscope/internal/core/validate"
	"github.com/hay-kot/msgscope/internal/router"
)

// StorageFileName is the slot file inside the data directory.
const StorageFileName = "storage.json"

// Config holds the application configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Query   QueryConfig   `yaml:"query"`
	TUI     TUIConfig     `yaml:"tui"`
	DataDir string        `yaml:"-"` // set by caller, not from config file
}

// APIConfig configures the loghub API client.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	BasePath string        `yaml:"base_path"`
	Timeout  time.Duration `yaml:"timeout"`
}

// StorageConfig configures the durable history slot.
type StorageConfig struct {
	Key string `yaml:"key"`
}

// QueryConfig holds query form defaults.
type QueryConfig struct {
	// Lookback is the window used when no since time is given.
	Lookback time.Duration `yaml:"lookback"`
	// DefaultView is the view name or path the TUI opens when none was
	// persisted.
	DefaultView string `yaml:"default_view"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	ToastDuration time.Duration `yaml:"toast_duration"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:  "http://127.0.0.1:6001",
			BasePath: "/api",
			Timeout:  30 * time.Second,
		},
		Storage: StorageConfig{
			Key: "store",
		},
		Query: QueryConfig{
			Lookback:    time.Hour,
			DefaultView: "raw",
		},
		TUI: TUIConfig{
			ToastDuration: 3 * time.Second,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.DataDir = dataDir
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.API.BasePath == "" {
		c.API.BasePath = defaults.API.BasePath
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = defaults.API.Timeout
	}
	if c.Storage.Key == "" {
		c.Storage.Key = defaults.Storage.Key
	}
	if c.Query.Lookback == 0 {
		c.Query.Lookback = defaults.Query.Lookback
	}
	if c.Query.DefaultView == "" {
		c.Query.DefaultView = defaults.Query.DefaultView
	}
	if c.TUI.ToastDuration == 0 {
		c.TUI.ToastDuration = defaults.TUI.ToastDuration
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if err := validateBaseURL(c.API.BaseURL); err != nil {
		errs = errs.Append("api.base_url", err)
	}
	if err := validate.Path(c.API.BasePath); err != nil {
		errs = errs.Append("api.base_path", err)
	}
	if c.API.Timeout <= 0 {
		errs = errs.Append("api.timeout", errors.New("must be positive"))
	}
	if c.Storage.Key == "" {
		errs = errs.Append("storage.key", errors.New("cannot be empty"))
	}
	if c.Query.Lookback <= 0 {
		errs = errs.Append("query.lookback", errors.New("must be positive"))
	}
	if _, ok := router.ByName(c.Query.DefaultView); !ok {
		errs = errs.Append("query.default_view", fmt.Errorf("unknown view %q", c.Query.DefaultView))
	}
	if c.TUI.ToastDuration < 0 {
		errs = errs.Append("tui.toast_duration", errors.New("cannot be negative"))
	}
	if c.DataDir == "" {
		errs = errs.Append("data_dir", errors.New("cannot be empty"))
	}

	return errs.ToError()
}

// StorageFile returns the path to the durable slot file.
func (c *Config) StorageFile() string {
	return filepath.Join(c.DataDir, StorageFileName)
}

// DefaultRoute returns the route named by query.default_view.
func (c *Config) DefaultRoute() router.Route {
	if r, ok := router.ByName(c.Query.DefaultView); ok {
		return r
	}
	return router.Default()
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
