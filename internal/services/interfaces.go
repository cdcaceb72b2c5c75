package services

import (
	"context"
	"io"
	"time"

	"github.com/restan/tethbox/internal/config"
	"github.com/restan/tethbox/internal/tethbox"
)

// AttachmentDownloader streams an attachment of the active mailbox
type AttachmentDownloader interface {
	DownloadAttachment(ctx context.Context, key string, w io.Writer) (int64, error)
}

// AttachmentService handles attachment download operations
type AttachmentService interface {
	DownloadAttachment(ctx context.Context, att tethbox.Attachment, savePath string) (string, error)
	OpenAttachment(ctx context.Context, filePath string) error
	GetDefaultDownloadPath() string
}

// LinkService handles link extraction and opening operations
type LinkService interface {
	GetMessageLinks(msg tethbox.Message) []LinkInfo
	OpenLink(ctx context.Context, url string) error
	ValidateURL(url string) error
}

// LinkInfo represents a link found in a message
type LinkInfo struct {
	Index int    `json:"index"` // Reference number [1], [2], etc.
	URL   string `json:"url"`
	Text  string `json:"text"`
	Type  string `json:"type"` // "html", "email", "file" or "plain"
}

// ClipboardService copies text to the system clipboard
type ClipboardService interface {
	Copy(ctx context.Context, text string) error
}

// ArchiveService keeps opened messages past the lifetime of their mailbox
type ArchiveService interface {
	SaveMessage(ctx context.Context, accountEmail string, msg tethbox.Message) error
	GetMessage(ctx context.Context, accountEmail, key string) (*ArchiveEntry, error)
	ListMessages(ctx context.Context, accountEmail string, limit int) ([]*ArchiveEntry, error)
	DeleteMessage(ctx context.Context, accountEmail, key string) error
	ExportMbox(ctx context.Context, w io.Writer, accountEmail string) (int, error)
	ExportMboxFile(ctx context.Context, path, accountEmail string) (int, error)
}

// ArchiveEntry is an archived message and the mailbox it came from
type ArchiveEntry struct {
	AccountEmail string
	SavedAt      time.Time
	Message      tethbox.Message
}

// ThemeUpdateCallback represents a function that gets called when theme changes
type ThemeUpdateCallback func(*config.ColorsConfig) error

// ThemeService handles theme operations
type ThemeService interface {
	ListAvailableThemes(ctx context.Context) ([]string, error)
	GetCurrentTheme(ctx context.Context) (string, error)
	ApplyTheme(ctx context.Context, name string) error
	RegisterComponent(name string, callback ThemeUpdateCallback) error
	GetCurrentThemeConfig() *config.ColorsConfig
}
