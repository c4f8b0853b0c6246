// Package config loads and validates the TOML configuration shared by the
// shelfd daemon and CLI.
package config
