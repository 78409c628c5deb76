// Package config loads and validates the server's YAML configuration and
// supports hot reload of the tunable settings (classification threshold,
// API key) via file watching.
package config
