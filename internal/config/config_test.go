package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "LOG_FILE", "REDIS_URL", "DATA_DIR",
		"AVATAR_NAME", "LANGUAGE", "LOCALES_DIR", "SCRIPT_CACHE_SIZE", "SCRIPT_CACHE_TTL", "SESSION_TTL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 256, cfg.ScriptCacheSize)
	assert.Equal(t, 30*time.Minute, cfg.ScriptCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATA_DIR", "/games/u5")
	t.Setenv("AVATAR_NAME", "Roberto")
	t.Setenv("SCRIPT_CACHE_SIZE", "16")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "/games/u5", cfg.DataDir)
	assert.Equal(t, "Roberto", cfg.AvatarName)
	assert.Equal(t, 16, cfg.ScriptCacheSize)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"cache size not a number", "SCRIPT_CACHE_SIZE", "lots"},
		{"cache size zero", "SCRIPT_CACHE_SIZE", "0"},
		{"bad duration", "SCRIPT_CACHE_TTL", "soon"},
		{"negative ttl", "SESSION_TTL", "-1h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
