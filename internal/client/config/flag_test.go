package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd", "-a", "https://storage.example.com", "-d", "test.db", "-l", "debug", "-t", "10"}, expectPanic: false,
			expected: &Config{ServerURL: "https://storage.example.com", DatabaseDSN: "test.db", LogLevel: "debug", RequestTimeout: 10 * time.Second}},
		{name: "Test2 explicit websocket url", args: []string{"cmd", "-w", "wss://ws.example.com/ws", "-t", "0"}, expectPanic: false,
			expected: &Config{WebSocketURL: "wss://ws.example.com/ws"}},
		{name: "Test3 incorrect timeout", args: []string{"cmd", "-a", "https://storage.example.com", "-t", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {

				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
