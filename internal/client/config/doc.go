// Package config loads runtime configuration for the sortedstorage CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend REST API
//	-w string   WebSocket endpoint URL (derived from -a when omitted)
//	-d string   path of the local SQLite database
//	-l string   log level (debug, info, warn, error)
//	-t int      REST request timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_url": "https://storage.example.com",
//	  "websocket_url": "wss://storage.example.com/ws",
//	  "database_dsn": "sortedstorage.db",
//	  "log_level": "info",
//	  "request_timeout": "30s"
//	}
//
// Primary API
//
//   - type Config                     — runtime settings for the CLI
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
