package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// themeSection is the top-level key of a theme file
const themeSection = "tethbox"

// ThemeLoader handles loading and saving themes
type ThemeLoader struct {
	themesDir string
}

// NewThemeLoader creates a new theme loader
func NewThemeLoader(themesDir string) *ThemeLoader {
	return &ThemeLoader{
		themesDir: themesDir,
	}
}

// LoadTheme loads a theme by name ("tethbox-dark" or "tethbox-dark.yaml").
// Missing colors are filled from DefaultColors.
func (tl *ThemeLoader) LoadTheme(name string) (*ColorsConfig, error) {
	if !strings.HasSuffix(name, ".yaml") {
		name += ".yaml"
	}
	return tl.LoadThemeFromFile(name)
}

// LoadThemeFromFile loads a theme from a YAML file
func (tl *ThemeLoader) LoadThemeFromFile(filename string) (*ColorsConfig, error) {
	// Try to load from themes directory first
	path := filepath.Join(tl.themesDir, filename)
	if !fileExists(path) {
		// Try absolute path
		path = filename
		if !fileExists(path) {
			return nil, fmt.Errorf("theme file not found: %s", filename)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}

	var section map[string]yaml.Node
	if err := yaml.Unmarshal(data, &section); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}
	node, ok := section[themeSection]
	if !ok {
		return nil, fmt.Errorf("invalid theme file: missing %s section", themeSection)
	}

	colors := DefaultColors()
	if err := node.Decode(colors); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}
	if err := tl.ValidateTheme(colors); err != nil {
		return nil, err
	}
	return colors, nil
}

// ListAvailableThemes returns the theme files in the themes directory
func (tl *ThemeLoader) ListAvailableThemes() ([]string, error) {
	var themes []string

	entries, err := os.ReadDir(tl.themesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read themes directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".yaml" {
			themes = append(themes, entry.Name())
		}
	}

	return themes, nil
}

// SaveThemeToFile saves a theme configuration to a YAML file
func (tl *ThemeLoader) SaveThemeToFile(theme *ColorsConfig, filename string) error {
	// Ensure themes directory exists
	if err := os.MkdirAll(tl.themesDir, 0755); err != nil {
		return fmt.Errorf("failed to create themes directory: %w", err)
	}

	data, err := yaml.Marshal(map[string]*ColorsConfig{themeSection: theme})
	if err != nil {
		return fmt.Errorf("failed to marshal theme: %w", err)
	}

	if err := os.WriteFile(filepath.Join(tl.themesDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write theme file: %w", err)
	}

	return nil
}

// ValidateTheme checks the colors every view depends on
func (tl *ThemeLoader) ValidateTheme(theme *ColorsConfig) error {
	if theme == nil {
		return fmt.Errorf("theme is nil")
	}

	requiredColors := []struct {
		name  string
		color Color
	}{
		{"Body.FgColor", theme.Body.FgColor},
		{"Body.BgColor", theme.Body.BgColor},
		{"Mail.UnreadColor", theme.Mail.UnreadColor},
		{"Mail.ReadColor", theme.Mail.ReadColor},
		{"Countdown.ExpiredColor", theme.Countdown.ExpiredColor},
	}

	for _, req := range requiredColors {
		if req.color == "" {
			return fmt.Errorf("missing required color: %s", req.name)
		}
	}

	return nil
}

// CreateDefaultTheme writes tethbox-dark.yaml unless it already exists
func (tl *ThemeLoader) CreateDefaultTheme() error {
	if fileExists(filepath.Join(tl.themesDir, "tethbox-dark.yaml")) {
		return nil
	}
	return tl.SaveThemeToFile(DefaultColors(), "tethbox-dark.yaml")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
