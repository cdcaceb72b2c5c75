package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ArchivedAttachment is the metadata kept for an attachment. The content is
// not archived; attachments are served by the mailbox only while it lives.
type ArchivedAttachment struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// ArchivedMessage is a message saved past the lifetime of its mailbox
type ArchivedMessage struct {
	AccountEmail  string               `json:"account_email"`
	Key           string               `json:"key"`
	SenderAddress string               `json:"sender_address"`
	SenderName    string               `json:"sender_name"`
	Subject       string               `json:"subject"`
	Date          int64                `json:"date"`
	HTML          string               `json:"html"`
	SavedAt       int64                `json:"saved_at"`
	Attachments   []ArchivedAttachment `json:"attachments"`
}

// ErrNotArchived is returned when a message is not in the archive
var ErrNotArchived = errors.New("message not archived")

// ArchiveStore handles archived message operations
type ArchiveStore struct {
	db *sql.DB
}

// NewArchiveStore creates a new archive store from a base store
func NewArchiveStore(store *Store) *ArchiveStore {
	if store == nil {
		return nil
	}
	return &ArchiveStore{db: store.DB()}
}

// SaveMessage upserts a message and replaces its attachment metadata
func (as *ArchiveStore) SaveMessage(ctx context.Context, m *ArchivedMessage) error {
	if as == nil || as.db == nil {
		return fmt.Errorf("archive store not initialized")
	}
	if m == nil || strings.TrimSpace(m.AccountEmail) == "" || strings.TrimSpace(m.Key) == "" {
		return fmt.Errorf("account_email and key cannot be empty")
	}

	tx, err := as.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO archived_messages (account_email, message_key, sender_address, sender_name, subject, sent_at, html, saved_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(account_email, message_key) DO UPDATE SET
  sender_address = excluded.sender_address,
  sender_name = excluded.sender_name,
  subject = excluded.subject,
  sent_at = excluded.sent_at,
  html = excluded.html,
  saved_at = excluded.saved_at`,
		m.AccountEmail, m.Key, m.SenderAddress, m.SenderName, m.Subject, m.Date, m.HTML, m.SavedAt)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM archived_attachments WHERE account_email=? AND message_key=?`,
		m.AccountEmail, m.Key); err != nil {
		return fmt.Errorf("failed to replace attachments: %w", err)
	}
	for i, a := range m.Attachments {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO archived_attachments (account_email, message_key, attachment_key, filename, size, position)
VALUES (?, ?, ?, ?, ?, ?)`, m.AccountEmail, m.Key, a.Key, a.Filename, a.Size, i); err != nil {
			return fmt.Errorf("failed to save attachment %s: %w", a.Key, err)
		}
	}

	return tx.Commit()
}

// GetMessage returns one archived message with its attachments
func (as *ArchiveStore) GetMessage(ctx context.Context, accountEmail, key string) (*ArchivedMessage, error) {
	if as == nil || as.db == nil {
		return nil, fmt.Errorf("archive store not initialized")
	}
	row := as.db.QueryRowContext(ctx, `
SELECT account_email, message_key, sender_address, sender_name, subject, sent_at, html, saved_at
FROM archived_messages WHERE account_email=? AND message_key=?`, accountEmail, key)

	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotArchived
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if err := as.loadAttachments(ctx, []*ArchivedMessage{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages returns archived messages, newest saved first. An empty
// accountEmail lists every account; limit <= 0 means no limit.
func (as *ArchiveStore) ListMessages(ctx context.Context, accountEmail string, limit int) ([]*ArchivedMessage, error) {
	if as == nil || as.db == nil {
		return nil, fmt.Errorf("archive store not initialized")
	}

	query := `
SELECT account_email, message_key, sender_address, sender_name, subject, sent_at, html, saved_at
FROM archived_messages`
	var args []interface{}
	if strings.TrimSpace(accountEmail) != "" {
		query += ` WHERE account_email = ?`
		args = append(args, accountEmail)
	}
	query += ` ORDER BY saved_at DESC, sent_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	out, err := as.queryMessages(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if err := as.loadAttachments(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMessage removes a message and its attachment metadata
func (as *ArchiveStore) DeleteMessage(ctx context.Context, accountEmail, key string) error {
	if as == nil || as.db == nil {
		return fmt.Errorf("archive store not initialized")
	}
	tx, err := as.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM archived_messages WHERE account_email=? AND message_key=?`, accountEmail, key)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotArchived
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM archived_attachments WHERE account_email=? AND message_key=?`, accountEmail, key); err != nil {
		return fmt.Errorf("failed to delete attachments: %w", err)
	}
	return tx.Commit()
}

// CountMessages returns the number of archived messages
func (as *ArchiveStore) CountMessages(ctx context.Context) (int, error) {
	if as == nil || as.db == nil {
		return 0, fmt.Errorf("archive store not initialized")
	}
	var n int
	if err := as.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archived_messages`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// queryMessages drains the result set before attachments are loaded
func (as *ArchiveStore) queryMessages(ctx context.Context, query string, args ...interface{}) ([]*ArchivedMessage, error) {
	rows, err := as.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []*ArchivedMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(r rowScanner) (*ArchivedMessage, error) {
	var m ArchivedMessage
	if err := r.Scan(&m.AccountEmail, &m.Key, &m.SenderAddress, &m.SenderName, &m.Subject, &m.Date, &m.HTML, &m.SavedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (as *ArchiveStore) loadAttachments(ctx context.Context, msgs []*ArchivedMessage) error {
	for _, m := range msgs {
		rows, err := as.db.QueryContext(ctx, `
SELECT attachment_key, filename, size FROM archived_attachments
WHERE account_email=? AND message_key=? ORDER BY position`, m.AccountEmail, m.Key)
		if err != nil {
			return fmt.Errorf("failed to load attachments: %w", err)
		}
		for rows.Next() {
			var a ArchivedAttachment
			if err := rows.Scan(&a.Key, &a.Filename, &a.Size); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan attachment: %w", err)
			}
			m.Attachments = append(m.Attachments, a)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
