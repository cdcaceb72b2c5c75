package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for tethbox
type Config struct {
	// Mailbox server
	BaseURL        string `json:"base_url" yaml:"base_url" env:"TETHBOX_BASE_URL"`
	RouteStyle     string `json:"route_style" yaml:"route_style" env:"TETHBOX_ROUTE_STYLE"` // legacy, account
	RequestTimeout string `json:"request_timeout" yaml:"request_timeout" env:"TETHBOX_REQUEST_TIMEOUT"`

	// Logging
	LogFile string `json:"log_file" yaml:"log_file" env:"TETHBOX_LOG_FILE"`
	Debug   bool   `json:"debug" yaml:"debug" env:"TETHBOX_DEBUG"`

	// MetricsAddr exposes Prometheus metrics when set (e.g. "127.0.0.1:9464")
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr" env:"TETHBOX_METRICS_ADDR"`

	Archive     ArchiveConfig     `json:"archive" yaml:"archive"`
	Attachments AttachmentsConfig `json:"attachments" yaml:"attachments"`

	// Layout configuration
	Layout LayoutConfig `json:"layout" yaml:"layout"`

	// Keyboard shortcuts
	Keys KeyBindings `json:"keys" yaml:"keys"`
}

// ArchiveConfig controls the local message archive
type ArchiveConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" env:"TETHBOX_ARCHIVE_ENABLED"`
	// Path of the SQLite file (empty = DefaultArchivePath)
	Path string `json:"path" yaml:"path" env:"TETHBOX_ARCHIVE_PATH"`
}

// AttachmentsConfig controls attachment downloads
type AttachmentsConfig struct {
	// DownloadPath is where attachments are saved (empty = DefaultDownloadDir)
	DownloadPath string `json:"download_path" yaml:"download_path" env:"TETHBOX_DOWNLOAD_PATH"`
}

// LayoutConfig defines layout-specific configuration
type LayoutConfig struct {
	ShowBorders    bool   `json:"show_borders" yaml:"show_borders"`
	ShowTitles     bool   `json:"show_titles" yaml:"show_titles"`
	CompactMode    bool   `json:"compact_mode" yaml:"compact_mode"`
	CurrentTheme   string `json:"current_theme" yaml:"current_theme"`       // theme file name without extension
	CustomThemeDir string `json:"custom_theme_dir" yaml:"custom_theme_dir"` // empty = DefaultThemeDir
}

// KeyBindings defines keyboard shortcuts for the TUI
type KeyBindings struct {
	NewAccount  string `json:"new_account" yaml:"new_account"`
	ExtendTime  string `json:"extend_time" yaml:"extend_time"`
	Refresh     string `json:"refresh" yaml:"refresh"`
	Forward     string `json:"forward" yaml:"forward"`
	Attachments string `json:"attachments" yaml:"attachments"`
	Links       string `json:"links" yaml:"links"`
	SaveArchive string `json:"save_archive" yaml:"save_archive"` // Save opened message to the archive
	ShowArchive string `json:"show_archive" yaml:"show_archive"` // List archived messages
	CopyAddress string `json:"copy_address" yaml:"copy_address"` // Copy account address to clipboard
	Theme       string `json:"theme" yaml:"theme"`
	Help        string `json:"help" yaml:"help"`
	Quit        string `json:"quit" yaml:"quit"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:8080",
		RouteStyle:     "legacy",
		RequestTimeout: "15s",
		LogFile:        "",
		Archive:        ArchiveConfig{Enabled: true},
		Layout:         DefaultLayoutConfig(),
		Keys:           DefaultKeyBindings(),
	}
}

// DefaultKeyBindings returns default keyboard shortcuts
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		NewAccount:  "n",
		ExtendTime:  "e",
		Refresh:     "R",
		Forward:     "f",
		Attachments: "A",
		Links:       "L",
		SaveArchive: "s",
		ShowArchive: "S",
		CopyAddress: "y",
		Theme:       "T",
		Help:        "?",
		Quit:        "q",
	}
}

// DefaultLayoutConfig returns default layout configuration
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		ShowBorders:  true,
		ShowTitles:   true,
		CompactMode:  false,
		CurrentTheme: "tethbox-dark",
	}
}

// LoadConfig loads configuration from a JSON or YAML file. A missing file
// yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if isYAML(configPath) {
				err = yaml.Unmarshal(data, cfg)
			} else {
				err = json.Unmarshal(data, cfg)
			}
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", configPath, err)
			}
		}
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// ApplyEnv overrides fields from TETHBOX_* environment variables
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// Validate reports the first setting that cannot work
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	switch c.RouteStyle {
	case "", "legacy", "account":
	default:
		return fmt.Errorf("route_style must be \"legacy\" or \"account\", got %q", c.RouteStyle)
	}
	if c.RequestTimeout != "" {
		if d, err := time.ParseDuration(c.RequestTimeout); err != nil || d <= 0 {
			return fmt.Errorf("request_timeout must be a positive duration, got %q", c.RequestTimeout)
		}
	}
	return nil
}

// DefaultConfigDir returns ~/.config/tethbox
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tethbox")
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.json")
}

// DefaultArchivePath returns the default archive database path
func DefaultArchivePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "archive.sqlite3")
}

// DefaultDownloadDir returns ~/Downloads
func DefaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Downloads")
}

// DefaultThemeDir returns the default themes directory path
func DefaultThemeDir() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "themes")
}

// GetArchivePath returns the configured archive path or the default
func (c *Config) GetArchivePath() string {
	if c.Archive.Path != "" {
		return expandHome(c.Archive.Path)
	}
	return DefaultArchivePath()
}

// GetDownloadPath returns the configured download directory or the default
func (c *Config) GetDownloadPath() string {
	if c.Attachments.DownloadPath != "" {
		return expandHome(c.Attachments.DownloadPath)
	}
	return DefaultDownloadDir()
}

// GetThemeDir returns the configured theme directory or the default
func (c *Config) GetThemeDir() string {
	if c.Layout.CustomThemeDir != "" {
		return expandHome(c.Layout.CustomThemeDir)
	}
	return DefaultThemeDir()
}

// SaveConfig saves the configuration to a file, as YAML when the name ends in .yaml/.yml
func (c *Config) SaveConfig(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetRequestTimeout returns parsed timeout for API requests
func (c *Config) GetRequestTimeout() time.Duration {
	if c.RequestTimeout != "" {
		if d, err := time.ParseDuration(c.RequestTimeout); err == nil && d > 0 {
			return d
		}
	}
	return 15 * time.Second
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
