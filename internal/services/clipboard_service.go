package services

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ClipboardServiceImpl copies text through the platform clipboard tool
type ClipboardServiceImpl struct {
	goos     string
	lookPath func(string) (string, error)
}

// NewClipboardService creates a clipboard service for the running platform
func NewClipboardService() *ClipboardServiceImpl {
	return &ClipboardServiceImpl{goos: runtime.GOOS, lookPath: exec.LookPath}
}

// Copy writes text to the clipboard
func (s *ClipboardServiceImpl) Copy(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("nothing to copy: %w", ErrInvalidInput)
	}
	name, args, err := s.command()
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// command picks pbcopy, xclip/xsel/wl-copy or clip depending on the platform
func (s *ClipboardServiceImpl) command() (string, []string, error) {
	switch s.goos {
	case "darwin":
		return "pbcopy", nil, nil
	case "windows":
		return "clip", nil, nil
	case "linux", "freebsd", "openbsd":
		candidates := []struct {
			name string
			args []string
		}{
			{"xclip", []string{"-selection", "clipboard"}},
			{"xsel", []string{"--clipboard", "--input"}},
			{"wl-copy", nil},
		}
		for _, c := range candidates {
			if _, err := s.lookPath(c.name); err == nil {
				return c.name, c.args, nil
			}
		}
		return "", nil, fmt.Errorf("%w (xclip, xsel or wl-copy required)", ErrNoClipboard)
	}
	return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, s.goos)
}
