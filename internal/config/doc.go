// Package config loads, normalizes, and validates epublift's runtime
// configuration from the TOML config file, environment variables, and
// CLI flag overrides. The resulting Config value is immutable by
// convention: it is built once and passed explicitly to the workflow.
package config
