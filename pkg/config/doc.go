// Package config loads configuration structs from environment variables
// using `env` struct tags, with optional .env file support for local
// development. Each component defines its own Config struct and the process
// entry point loads them explicitly; there is no global configuration
// registry.
package config
