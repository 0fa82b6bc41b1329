// Package config loads, normalizes, and validates the TOML configuration
// for the beacon daemon and CLI.
package config
