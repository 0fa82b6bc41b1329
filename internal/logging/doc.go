// Package logging configures slog handlers and shared attribute helpers
// used across the beacon daemon and CLI.
package logging
