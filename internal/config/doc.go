// Package config loads application configuration from environment variables
// with sensible defaults for local development.
package config
