package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigPath_Priority(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	// CLI flag takes precedence
	t.Setenv("TETHBOX_CONFIG", "/env/config.json")
	assert.Equal(t, "/custom/config.json", getConfigPath("/custom/config.json"))

	// Environment variable when no flag
	assert.Equal(t, "/env/config.json", getConfigPath(""))

	// Default when neither flag nor env
	t.Setenv("TETHBOX_CONFIG", "")
	assert.Equal(t, filepath.Join(home, ".config", "tethbox", "config.json"), getConfigPath(""))
}

func TestGetConfigPath_FallsBackToYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TETHBOX_CONFIG", "")

	dir := filepath.Join(home, ".config", "tethbox")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("base_url: http://x.test\n"), 0o644))

	assert.Equal(t, filepath.Join(dir, "config.yaml"), getConfigPath(""))

	// An existing JSON file wins
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0o644))
	assert.Equal(t, filepath.Join(dir, "config.json"), getConfigPath(""))
}

func TestExpandPath_HomeDirectory(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	testCases := []struct {
		input    string
		expected string
	}{
		{"~", home},
		{"~/test", filepath.Join(home, "test")},
		{"~/config/file.json", filepath.Join(home, "config", "file.json")},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, expandPath(tc.input), "Path expansion for: %s", tc.input)
	}
}

func TestExpandPath_EdgeCases(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"no_tilde", "/path/without/tilde", "/path/without/tilde"},
		{"tilde_middle", "/path/~/middle", "/path/~/middle"},
		{"relative", "relative/path", "relative/path"},
		{"empty_string", "", ""},
		{"just_slash", "/", "/"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, expandPath(tc.input))
		})
	}
}

func TestLoadConfig_Priority(t *testing.T) {
	t.Setenv("TETHBOX_BASE_URL", "")
	t.Setenv("TETHBOX_ROUTE_STYLE", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://file.test/\nroute_style: account\n"), 0o644))

	// File over defaults, trailing slash dropped
	cfg, err := loadConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, "http://file.test", cfg.BaseURL)
	assert.Equal(t, "account", cfg.RouteStyle)

	// Environment over file
	t.Setenv("TETHBOX_BASE_URL", "http://env.test")
	cfg, err = loadConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, "http://env.test", cfg.BaseURL)

	// Flag over environment
	cfg, err = loadConfig(path, "https://flag.test")
	require.NoError(t, err)
	assert.Equal(t, "https://flag.test", cfg.BaseURL)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TETHBOX_BASE_URL", "")
	t.Setenv("TETHBOX_ROUTE_STYLE", "")

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.json"), "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "legacy", cfg.RouteStyle)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("TETHBOX_BASE_URL", "")
	t.Setenv("TETHBOX_ROUTE_STYLE", "")

	tests := []struct {
		name    string
		content string
		flag    string
	}{
		{"bad route style", `{"route_style": "graphql"}`, ""},
		{"bad url from flag", `{}`, "ftp://example.test"},
		{"bad timeout", `{"request_timeout": "soon"}`, ""},
		{"malformed json", `{`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := loadConfig(path, tt.flag)
			assert.Error(t, err)
		})
	}
}
