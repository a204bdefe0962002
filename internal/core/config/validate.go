package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration.
// Unlike Validate, this also checks the config file and data directory on disk.
func (c *Config) ValidateDeep(configPath string) error {
	var errs criterio.FieldErrorsBuilder

	var fieldErrs criterio.FieldErrors
	if err := c.Validate(); err != nil {
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = errs.Append(fe.Field, fe.Err)
		}
	}

	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil && info.IsDir() {
			errs = errs.Append("config", fmt.Errorf("%s is a directory, not a file", configPath))
		} else if err != nil && !os.IsNotExist(err) {
			errs = errs.Append("config", fmt.Errorf("cannot access %s: %w", configPath, err))
		}
	}

	if c.DataDir != "" {
		if info, err := os.Stat(c.DataDir); err == nil && !info.IsDir() {
			errs = errs.Append("data_dir", fmt.Errorf("%s exists but is not a directory", c.DataDir))
		} else if err != nil && !os.IsNotExist(err) {
			errs = errs.Append("data_dir", fmt.Errorf("cannot access %s: %w", c.DataDir, err))
		}

		if info, err := os.Stat(c.StorageFile()); err == nil && info.IsDir() {
			errs = errs.Append("storage", fmt.Errorf("%s is a directory, not a file", c.StorageFile()))
		}
	}

	return errs.ToError()
}

// Warnings returns non-fatal issues with the configuration.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if u, err := url.Parse(c.API.BaseURL); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
		warnings = append(warnings, ValidationWarning{
			Category: "API",
			Item:     "base_url",
			Message:  "plain http to a remote host",
		})
	}

	if c.Query.Lookback > 24*time.Hour {
		warnings = append(warnings, ValidationWarning{
			Category: "Query",
			Item:     "lookback",
			Message:  fmt.Sprintf("lookback of %s scans more than a day of messages per query", c.Query.Lookback),
		})
	}

	return warnings
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
