package config

import "time"

// Config holds runtime settings for the sortedstorage CLI.
//
// Fields:
//   - ServerURL: base URL of the backend REST API.
//   - WebSocketURL: URL of the collaboration WebSocket endpoint. When empty,
//     it is derived from ServerURL (http -> ws, path /ws).
//   - DatabaseDSN: path of the local SQLite database.
//   - LogLevel: zerolog level name (debug, info, warn, error).
//   - RequestTimeout: per-request timeout for REST calls.
type Config struct {
	ServerURL      string
	WebSocketURL   string
	DatabaseDSN    string
	LogLevel       string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.WebSocketURL = ""
	c.DatabaseDSN = "sortedstorage.db"
	c.LogLevel = "info"
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	cfg.normalize()
	return cfg
}

// normalize derives WebSocketURL from ServerURL when it was not set
// explicitly.
func (c *Config) normalize() {
	if c.WebSocketURL != "" {
		return
	}
	c.WebSocketURL = deriveWebSocketURL(c.ServerURL)
}

func deriveWebSocketURL(serverURL string) string {
	switch {
	case len(serverURL) > 8 && serverURL[:8] == "https://":
		return "wss://" + serverURL[8:] + "/ws"
	case len(serverURL) > 7 && serverURL[:7] == "http://":
		return "ws://" + serverURL[7:] + "/ws"
	}
	return serverURL + "/ws"
}
