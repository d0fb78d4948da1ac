package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration
// including file accessibility, asset paths, and scope patterns. The
// configPath argument specifies the config file location to validate (empty
// string skips config file check). This calls Validate() first for basic
// structural validation.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateAssets(),
		c.validateScope(),
		criterio.Run("status.probe_url", c.Status.ProbeURL, isHTTPURLOrEmpty),
		criterio.Run("serve.addr", c.Serve.Addr, isHostPort),
		criterio.Run("serve.origin_addr", c.Serve.OriginAddr, isHostPort),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if len(c.Worker.Assets) == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Worker",
			Item:     "worker.assets",
			Message:  "no assets configured; install will cache nothing",
		})
	}

	if c.Worker.FetchTimeout == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Worker",
			Item:     "worker.fetch_timeout",
			Message:  "network fetches have no timeout",
		})
	}

	return warnings
}

// validateFileAccess checks the config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

// validateAssets checks that every asset resolves onto the worker origin.
func (c *Config) validateAssets() error {
	origin, err := c.OriginURL()
	if err != nil {
		return criterio.NewFieldErrors("worker.origin", err)
	}

	var errs criterio.FieldErrorsBuilder
	seen := make(map[string]bool, len(c.Worker.Assets))

	for i, asset := range c.Worker.Assets {
		field := fmt.Sprintf("worker.assets[%d]", i)

		ref, err := url.Parse(asset)
		if err != nil {
			errs = errs.Append(field, fmt.Errorf("invalid URL %q: %w", asset, err))
			continue
		}

		resolved := origin.ResolveReference(ref)
		if resolved.Scheme != origin.Scheme || resolved.Host != origin.Host {
			errs = errs.Append(field, fmt.Errorf("asset %q is not on origin %s", asset, c.Worker.Origin))
			continue
		}

		key := resolved.String()
		if seen[key] {
			errs = errs.Append(field, fmt.Errorf("duplicate asset %q", asset))
		}
		seen[key] = true
	}

	return errs.ToError()
}

// validateScope checks that scope globs are valid absolute path patterns.
func (c *Config) validateScope() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.Worker.Scope {
		field := fmt.Sprintf("worker.scope[%d]", i)
		if !strings.HasPrefix(pattern, "/") {
			errs = errs.Append(field, fmt.Errorf("pattern %q must start with /", pattern))
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(field, fmt.Errorf("invalid glob %q", pattern))
		}
	}
	return errs.ToError()
}

func isHTTPURLOrEmpty(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http(s) URL")
	}
	return nil
}

func isHostPort(addr string) error {
	if addr == "" {
		return fmt.Errorf("cannot be empty")
	}
	if !strings.Contains(addr, ":") {
		return fmt.Errorf("%q is missing a port", addr)
	}
	return nil
}
