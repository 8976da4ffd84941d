// Package logging builds the slog loggers used across epublift and
// provides typed attribute helpers so call sites stay uniform.
package logging
