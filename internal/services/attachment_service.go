package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/restan/tethbox/internal/config"
	"github.com/restan/tethbox/internal/tethbox"
	"go.uber.org/zap"
)

// AttachmentServiceImpl implements AttachmentService
type AttachmentServiceImpl struct {
	downloader AttachmentDownloader
	config     *config.Config
	logger     *zap.Logger
}

// NewAttachmentService creates a new attachment service
func NewAttachmentService(downloader AttachmentDownloader, cfg *config.Config, logger *zap.Logger) *AttachmentServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentServiceImpl{
		downloader: downloader,
		config:     cfg,
		logger:     logger.Named("attachments"),
	}
}

// DownloadAttachment saves an attachment of the active mailbox. An empty
// savePath writes into the download directory under the attachment's own
// name; existing files are never overwritten.
func (s *AttachmentServiceImpl) DownloadAttachment(ctx context.Context, att tethbox.Attachment, savePath string) (string, error) {
	if strings.TrimSpace(att.Key) == "" {
		return "", fmt.Errorf("attachment key cannot be empty: %w", ErrInvalidInput)
	}

	finalPath := savePath
	if finalPath == "" {
		finalPath = filepath.Join(s.GetDefaultDownloadPath(), safeFilename(att))
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	// Handle filename conflicts by adding suffix
	finalPath = resolveFilenameConflict(finalPath)

	f, err := os.OpenFile(finalPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	n, err := s.downloader.DownloadAttachment(ctx, att.Key, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to write file: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(finalPath)
		return "", fmt.Errorf("failed to download attachment: %w", err)
	}

	s.logger.Info("attachment saved",
		zap.String("key", att.Key),
		zap.String("path", finalPath),
		zap.Int64("bytes", n))
	return finalPath, nil
}

// OpenAttachment opens a file using the system default application
func (s *AttachmentServiceImpl) OpenAttachment(ctx context.Context, filePath string) error {
	if filePath == "" {
		return fmt.Errorf("filePath cannot be empty: %w", ErrInvalidInput)
	}

	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file does not exist: %s: %w", filePath, ErrNotFound)
	}

	cmd, err := openCommand(ctx, filePath)
	if err != nil {
		return err
	}
	// Start the command (non-blocking)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// GetDefaultDownloadPath returns the default download directory
func (s *AttachmentServiceImpl) GetDefaultDownloadPath() string {
	if s.config != nil {
		if p := s.config.GetDownloadPath(); p != "" {
			return p
		}
	}
	if p := config.DefaultDownloadDir(); p != "" {
		return p
	}
	// Fallback to current directory
	return "."
}

// CategorizeAttachment returns a coarse type for list icons
func CategorizeAttachment(filename string) string {
	mimeType := strings.ToLower(mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))))
	filename = strings.ToLower(filename)

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	case strings.HasSuffix(filename, ".ics") || strings.Contains(mimeType, "calendar"):
		return "calendar"
	case strings.HasSuffix(filename, ".pdf") || strings.HasSuffix(filename, ".doc") ||
		strings.HasSuffix(filename, ".docx") || strings.HasSuffix(filename, ".txt") ||
		strings.HasSuffix(filename, ".md"):
		return "document"
	case strings.HasSuffix(filename, ".xls") || strings.HasSuffix(filename, ".xlsx") ||
		strings.HasSuffix(filename, ".csv"):
		return "spreadsheet"
	case strings.HasSuffix(filename, ".zip") || strings.HasSuffix(filename, ".tar") ||
		strings.HasSuffix(filename, ".gz") || strings.HasSuffix(filename, ".rar"):
		return "archive"
	}
	return "file"
}

// safeFilename strips any directory part the sender put in the name
func safeFilename(att tethbox.Attachment) string {
	name := strings.TrimSpace(att.Filename)
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "attachment_" + att.Key
	}
	return name
}

// resolveFilenameConflict adds a suffix if the file already exists
func resolveFilenameConflict(originalPath string) string {
	if _, err := os.Stat(originalPath); os.IsNotExist(err) {
		return originalPath
	}

	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	for i := 1; i < 1000; i++ {
		newPath := filepath.Join(dir, fmt.Sprintf("%s_%d%s", name, i, ext))
		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			return newPath
		}
	}

	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", name, strconv.Itoa(os.Getpid()), ext))
}

// openCommand builds the platform "open with default app" command
func openCommand(ctx context.Context, target string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "open", target), nil
	case "linux":
		return exec.CommandContext(ctx, "xdg-open", target), nil
	case "windows":
		return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", target), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, runtime.GOOS)
}
