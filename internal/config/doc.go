// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional YAML file. Every setting has a
// SHEETDESK_-prefixed environment variable; nested keys join with an
// underscore (server.port -> SHEETDESK_SERVER_PORT).
package config
