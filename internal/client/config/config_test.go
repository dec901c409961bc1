package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Empty(t, c.WebSocketURL)
	assert.Equal(t, "sortedstorage.db", c.DatabaseDSN)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerURL)
	assert.Equal(t, "ws://127.0.0.1:8080/ws", cfg.WebSocketURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestNormalize_DerivesWebSocketURL(t *testing.T) {
	tests := []struct {
		server string
		ws     string
		want   string
	}{
		{server: "http://127.0.0.1:8080", ws: "", want: "ws://127.0.0.1:8080/ws"},
		{server: "https://storage.example.com", ws: "", want: "wss://storage.example.com/ws"},
		{server: "https://storage.example.com", ws: "wss://other.example.com/ws", want: "wss://other.example.com/ws"},
	}

	for _, tt := range tests {
		c := Config{ServerURL: tt.server, WebSocketURL: tt.ws}
		c.normalize()
		assert.Equal(t, tt.want, c.WebSocketURL)
	}
}
