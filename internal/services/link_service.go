package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/restan/tethbox/internal/render"
	"github.com/restan/tethbox/internal/tethbox"
)

// LinkServiceImpl implements LinkService
type LinkServiceImpl struct{}

// NewLinkService creates a new link service
func NewLinkService() *LinkServiceImpl {
	return &LinkServiceImpl{}
}

// GetMessageLinks returns the links of a fetched message, numbered as in the rendered body
func (s *LinkServiceImpl) GetMessageLinks(msg tethbox.Message) []LinkInfo {
	refs := render.ExtractLinks(msg)
	links := make([]LinkInfo, 0, len(refs))
	for _, ref := range refs {
		links = append(links, LinkInfo{
			Index: ref.Index,
			URL:   ref.URL,
			Text:  ref.Text,
			Type:  categorizeLink(ref.URL),
		})
	}
	return links
}

// OpenLink opens a URL using the system default browser
func (s *LinkServiceImpl) OpenLink(ctx context.Context, link string) error {
	if err := s.ValidateURL(link); err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	cmd, err := openCommand(ctx, link)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open URL: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// ValidateURL rejects schemes a mail link has no business opening
func (s *LinkServiceImpl) ValidateURL(urlStr string) error {
	if strings.TrimSpace(urlStr) == "" {
		return fmt.Errorf("URL cannot be empty: %w", ErrInvalidInput)
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	switch strings.ToLower(parsedURL.Scheme) {
	case "http", "https", "mailto", "ftp", "ftps":
		return nil
	case "":
		return fmt.Errorf("URL missing scheme: %w", ErrInvalidInput)
	default:
		return fmt.Errorf("unsupported URL scheme %q: %w", parsedURL.Scheme, ErrInvalidInput)
	}
}

func categorizeLink(urlStr string) string {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "plain"
	}
	switch strings.ToLower(parsedURL.Scheme) {
	case "mailto":
		return "email"
	case "ftp", "ftps", "file":
		return "file"
	case "http", "https":
		return "html"
	}
	return "plain"
}
