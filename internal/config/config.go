package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// API holds connection settings for the remote conversion service.
type API struct {
	Host  string `toml:"host"`
	Token string `toml:"token"`
}

// Metadata carries optional bibliographic fields sent when the remote
// book is created. Absent fields are transmitted as empty strings; the
// server's own extracted document metadata wins on conflict.
type Metadata struct {
	Title     string `toml:"title"`
	Author    string `toml:"author"`
	ISBN      string `toml:"isbn"`
	Publisher string `toml:"publisher"`
}

// HTTP selects and tunes the transport backend.
type HTTP struct {
	// Backend is "auto", "native", or "curl".
	Backend        string `toml:"backend"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow tunes the orchestrator's polling discipline.
type Workflow struct {
	KeepRemote bool `toml:"keep_remote"`
	// PollIntervalMS is the sleep between status polls in milliseconds.
	PollIntervalMS int `toml:"poll_interval_ms"`
	// PollMaxAttempts bounds each wait state so a stuck remote job
	// cannot hang the run forever.
	PollMaxAttempts int `toml:"poll_max_attempts"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Notifications configures optional ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration for one epublift run.
//
// Sections:
//   - API: conversion service host and credential
//   - Metadata: optional bibliographic fields for book creation
//   - HTTP: transport backend selection and request timeout
//   - Workflow: keep-remote flag and polling bounds
//   - Logging: level and format
//   - Notifications: ntfy completion/failure pushes
type Config struct {
	API           API           `toml:"api"`
	Metadata      Metadata      `toml:"metadata"`
	HTTP          HTTP          `toml:"http"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`

	// InputFile is the positional CLI argument, never read from TOML.
	InputFile string `toml:"-"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/epublift/config.toml")
}

// Load parses the configuration file at path (or the default location
// when path is empty), applies environment fallbacks, and normalizes
// the result. Validation is separate because the input file and flag
// overrides arrive after loading.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return cfg, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	cfg.normalize()
	return cfg, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() {
	c.API.Host = strings.TrimRight(strings.TrimSpace(c.API.Host), "/")
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("EPUBLIFT_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	if value, ok := os.LookupEnv("EPUBLIFT_API_HOST"); ok && strings.TrimSpace(value) != "" {
		c.API.Host = strings.TrimRight(strings.TrimSpace(value), "/")
	}

	c.HTTP.Backend = strings.ToLower(strings.TrimSpace(c.HTTP.Backend))
	if c.HTTP.Backend == "" {
		c.HTTP.Backend = defaultBackend
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		c.HTTP.TimeoutSeconds = defaultHTTPTimeoutSeconds
	}

	if c.Workflow.PollIntervalMS <= 0 {
		c.Workflow.PollIntervalMS = defaultPollIntervalMS
	}
	if c.Workflow.PollMaxAttempts <= 0 {
		c.Workflow.PollMaxAttempts = defaultPollMaxAttempts
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeoutSeconds
	}
}

func expandPath(pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", errors.New("path is empty")
	}
	if pathValue == "~" || strings.HasPrefix(pathValue, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			return home, nil
		}
		return filepath.Join(home, pathValue[2:]), nil
	}
	return filepath.Abs(pathValue)
}
