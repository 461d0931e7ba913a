// Package logging constructs slog loggers from application config and
// provides the attribute helpers used across fabula components.
package logging
