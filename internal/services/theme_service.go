package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/restan/tethbox/internal/config"
)

// componentRegistration represents a component that receives theme updates
type componentRegistration struct {
	name     string
	callback ThemeUpdateCallback
}

// ThemeServiceImpl implements ThemeService
type ThemeServiceImpl struct {
	mu           sync.Mutex
	currentTheme string
	// searched in order; the first directory holding <name>.yaml wins
	themeDirs []string

	registeredComponents []componentRegistration
	currentThemeConfig   *config.ColorsConfig
}

// NewThemeService creates a new theme service. Empty directories are skipped.
func NewThemeService(themeDirs ...string) *ThemeServiceImpl {
	s := &ThemeServiceImpl{currentTheme: "tethbox-dark"}
	for _, d := range themeDirs {
		if strings.TrimSpace(d) != "" {
			s.themeDirs = append(s.themeDirs, d)
		}
	}
	return s
}

// ListAvailableThemes returns theme names from every directory, without duplicates
func (s *ThemeServiceImpl) ListAvailableThemes(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var themes []string
	for _, dir := range s.themeDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
				continue
			}
			name := strings.TrimSuffix(entry.Name(), ".yaml")
			if !seen[name] {
				seen[name] = true
				themes = append(themes, name)
			}
		}
	}
	if len(themes) == 0 {
		return nil, fmt.Errorf("no themes found in any theme directories: %w", ErrNotFound)
	}
	sort.Strings(themes)
	return themes, nil
}

// GetCurrentTheme returns the name of the currently active theme
func (s *ThemeServiceImpl) GetCurrentTheme(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTheme, nil
}

// ApplyTheme loads a theme and pushes it to every registered component
func (s *ThemeServiceImpl) ApplyTheme(ctx context.Context, name string) error {
	themeConfig, err := s.loadThemeByName(name)
	if err != nil {
		return fmt.Errorf("failed to load theme '%s': %w", name, err)
	}
	return s.apply(name, themeConfig)
}

// ApplyDefault pushes the built-in colors, used when no theme file loads
func (s *ThemeServiceImpl) ApplyDefault() error {
	return s.apply("default", config.DefaultColors())
}

// RegisterComponent registers a component to receive theme updates. The
// current theme, if any, is applied to it immediately.
func (s *ThemeServiceImpl) RegisterComponent(name string, callback ThemeUpdateCallback) error {
	s.mu.Lock()
	s.registeredComponents = append(s.registeredComponents, componentRegistration{name: name, callback: callback})
	current := s.currentThemeConfig
	s.mu.Unlock()

	if current != nil {
		if err := callback(current); err != nil {
			return fmt.Errorf("failed to apply current theme to component '%s': %w", name, err)
		}
	}
	return nil
}

// GetCurrentThemeConfig returns the currently loaded theme configuration
func (s *ThemeServiceImpl) GetCurrentThemeConfig() *config.ColorsConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentThemeConfig
}

func (s *ThemeServiceImpl) apply(name string, themeConfig *config.ColorsConfig) error {
	s.mu.Lock()
	s.currentTheme = name
	s.currentThemeConfig = themeConfig
	components := append([]componentRegistration(nil), s.registeredComponents...)
	s.mu.Unlock()

	var errs []string
	for _, component := range components {
		if err := component.callback(themeConfig); err != nil {
			errs = append(errs, fmt.Sprintf("component '%s': %v", component.name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("theme update errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *ThemeServiceImpl) loadThemeByName(name string) (*config.ColorsConfig, error) {
	fileName := name + ".yaml"
	for _, dir := range s.themeDirs {
		if _, err := os.Stat(filepath.Join(dir, fileName)); err == nil {
			return config.NewThemeLoader(dir).LoadThemeFromFile(fileName)
		}
	}
	return nil, fmt.Errorf("theme '%s' not found in any theme directory: %w", name, ErrNotFound)
}
