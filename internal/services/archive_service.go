package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/jhillyerd/enmime"
	"github.com/restan/tethbox/internal/db"
	"github.com/restan/tethbox/internal/metrics"
	"github.com/restan/tethbox/internal/render"
	"github.com/restan/tethbox/internal/tethbox"
	"go.uber.org/zap"
)

const (
	// HeaderMessageKey carries the mailbox message key in exported messages
	HeaderMessageKey = "X-Tethbox-Key"
	// HeaderAttachment lists one attachment that was not archived ("name; size=N")
	HeaderAttachment = "X-Tethbox-Attachment"

	exportWrapWidth = 76
)

// ArchiveServiceImpl implements ArchiveService on the SQLite archive store
type ArchiveServiceImpl struct {
	store  *db.ArchiveStore
	logger *zap.Logger
	now    func() time.Time
}

// NewArchiveService creates an archive service. A nil store yields a service
// whose operations fail with ErrArchiveDisabled.
func NewArchiveService(store *db.ArchiveStore, logger *zap.Logger) *ArchiveServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveServiceImpl{store: store, logger: logger.Named("archive"), now: time.Now}
}

// Enabled reports whether an archive store is attached
func (s *ArchiveServiceImpl) Enabled() bool {
	return s != nil && s.store != nil
}

// SaveMessage archives a message of the given mailbox, replacing an earlier copy
func (s *ArchiveServiceImpl) SaveMessage(ctx context.Context, accountEmail string, msg tethbox.Message) error {
	if !s.Enabled() {
		return ErrArchiveDisabled
	}
	if strings.TrimSpace(accountEmail) == "" || strings.TrimSpace(msg.Key) == "" {
		return fmt.Errorf("account email and message key cannot be empty: %w", ErrInvalidInput)
	}

	rec := &db.ArchivedMessage{
		AccountEmail:  accountEmail,
		Key:           msg.Key,
		SenderAddress: msg.SenderAddress,
		SenderName:    msg.SenderName,
		Subject:       msg.Subject,
		Date:          msg.Date,
		HTML:          msg.HTML,
		SavedAt:       s.now().Unix(),
	}
	for _, a := range msg.Attachments {
		rec.Attachments = append(rec.Attachments, db.ArchivedAttachment{Key: a.Key, Filename: a.Filename, Size: a.Size})
	}
	if err := s.store.SaveMessage(ctx, rec); err != nil {
		return fmt.Errorf("failed to archive message: %w", err)
	}

	metrics.IncrementArchived()
	s.logger.Info("message archived", zap.String("account", accountEmail), zap.String("key", msg.Key))
	return nil
}

// GetMessage returns one archived message
func (s *ArchiveServiceImpl) GetMessage(ctx context.Context, accountEmail, key string) (*ArchiveEntry, error) {
	if !s.Enabled() {
		return nil, ErrArchiveDisabled
	}
	rec, err := s.store.GetMessage(ctx, accountEmail, key)
	if errors.Is(err, db.ErrNotArchived) {
		return nil, fmt.Errorf("archived message %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return toEntry(rec), nil
}

// ListMessages returns archived messages, newest saved first. An empty
// accountEmail lists every mailbox.
func (s *ArchiveServiceImpl) ListMessages(ctx context.Context, accountEmail string, limit int) ([]*ArchiveEntry, error) {
	if !s.Enabled() {
		return nil, ErrArchiveDisabled
	}
	recs, err := s.store.ListMessages(ctx, accountEmail, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*ArchiveEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toEntry(rec))
	}
	return out, nil
}

// DeleteMessage removes an archived message
func (s *ArchiveServiceImpl) DeleteMessage(ctx context.Context, accountEmail, key string) error {
	if !s.Enabled() {
		return ErrArchiveDisabled
	}
	err := s.store.DeleteMessage(ctx, accountEmail, key)
	if errors.Is(err, db.ErrNotArchived) {
		return fmt.Errorf("archived message %s: %w", key, ErrNotFound)
	}
	return err
}

// ExportMbox writes archived messages as an mbox stream, oldest first, and
// returns how many were written
func (s *ArchiveServiceImpl) ExportMbox(ctx context.Context, w io.Writer, accountEmail string) (int, error) {
	entries, err := s.ListMessages(ctx, accountEmail, 0)
	if err != nil {
		return 0, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Message.Date < entries[j].Message.Date
	})

	mw := mbox.NewWriter(w)
	n := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		part, err := buildMIME(e)
		if err != nil {
			return n, fmt.Errorf("build message %s: %w", e.Message.Key, err)
		}
		sender := e.Message.SenderAddress
		if sender == "" {
			sender = "MAILER-DAEMON"
		}
		dst, err := mw.CreateMessage(sender, e.Message.Time())
		if err != nil {
			return n, fmt.Errorf("create mbox entry: %w", err)
		}
		if err := part.Encode(dst); err != nil {
			return n, fmt.Errorf("encode message %s: %w", e.Message.Key, err)
		}
		n++
	}
	if err := mw.Close(); err != nil {
		return n, fmt.Errorf("close mbox: %w", err)
	}

	s.logger.Info("archive exported", zap.String("account", accountEmail), zap.Int("messages", n))
	return n, nil
}

// ExportMboxFile exports into a file, creating parent directories. The file
// is written under a temporary name and renamed once complete.
func (s *ArchiveServiceImpl) ExportMboxFile(ctx context.Context, path, accountEmail string) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, fmt.Errorf("export path cannot be empty: %w", ErrInvalidInput)
	}
	if !s.Enabled() {
		return 0, ErrArchiveDisabled
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tethbox-export-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := s.ExportMbox(ctx, tmp, accountEmail)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return n, nil
}

func toEntry(rec *db.ArchivedMessage) *ArchiveEntry {
	msg := tethbox.Message{
		Key:           rec.Key,
		SenderAddress: rec.SenderAddress,
		SenderName:    rec.SenderName,
		Subject:       rec.Subject,
		Date:          rec.Date,
		Read:          true,
		HTML:          rec.HTML,
		Fetched:       true,
	}
	for _, a := range rec.Attachments {
		msg.Attachments = append(msg.Attachments, tethbox.Attachment{Key: a.Key, Filename: a.Filename, Size: a.Size})
	}
	return &ArchiveEntry{
		AccountEmail: rec.AccountEmail,
		SavedAt:      time.Unix(rec.SavedAt, 0),
		Message:      msg,
	}
}

// buildMIME renders an archived message as RFC 5322 with text and HTML
// alternatives. Attachment content is gone with the mailbox, so only their
// names survive as headers.
func buildMIME(e *ArchiveEntry) (*enmime.Part, error) {
	m := e.Message
	from := m.SenderAddress
	if from == "" {
		from = "unknown@invalid"
	}
	subject := m.Subject
	if subject == "" {
		subject = "(no subject)"
	}

	b := enmime.Builder().
		From(m.SenderName, from).
		To("", e.AccountEmail).
		Subject(subject).
		Date(m.Time()).
		Header(HeaderMessageKey, m.Key).
		Text([]byte(render.PlainText(m, exportWrapWidth)))
	if strings.TrimSpace(m.HTML) != "" {
		b = b.HTML([]byte(m.HTML))
	}
	if len(m.Attachments) > 0 {
		for _, a := range m.Attachments {
			b = b.Header(HeaderAttachment, a.Filename+"; size="+strconv.FormatInt(a.Size, 10))
		}
	}
	return b.Build()
}
