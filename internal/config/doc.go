// Package config loads the daemon and CLI configuration from an optional
// YAML/JSON file, a .env file and CCIP_ prefixed environment variables.
package config
