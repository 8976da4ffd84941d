package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// Validate ensures the configuration is usable. It runs before any
// network call; a failure here means nothing was sent anywhere.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateInput(); err != nil {
		return err
	}
	if err := c.validateHTTP(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	if c.API.Host == "" {
		return errors.New("api.host must be set")
	}
	parsed, err := url.Parse(c.API.Host)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("api.host %q is not a valid URL", c.API.Host)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api.host %q must use http or https", c.API.Host)
	}
	if c.API.Token == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/epublift/config.toml"
		}
		return fmt.Errorf("api.token is required. Set EPUBLIFT_API_TOKEN, pass --token, or edit %s", defaultPath)
	}
	if !tokenPattern.MatchString(c.API.Token) {
		return errors.New("api.token must be a 32-character hexadecimal string")
	}
	return nil
}

func (c *Config) validateInput() error {
	if strings.TrimSpace(c.InputFile) == "" {
		return errors.New("input file is required")
	}
	info, err := os.Stat(c.InputFile)
	if err != nil {
		return fmt.Errorf("input file %s: %w", c.InputFile, err)
	}
	if info.IsDir() {
		return fmt.Errorf("input file %s is a directory", c.InputFile)
	}
	return nil
}

func (c *Config) validateHTTP() error {
	switch c.HTTP.Backend {
	case "auto", "native", "curl":
	default:
		return fmt.Errorf("http.backend %q must be auto, native, or curl", c.HTTP.Backend)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return errors.New("http.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.PollIntervalMS <= 0 {
		return errors.New("workflow.poll_interval_ms must be positive")
	}
	if c.Workflow.PollMaxAttempts <= 0 {
		return errors.New("workflow.poll_max_attempts must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	return nil
}
