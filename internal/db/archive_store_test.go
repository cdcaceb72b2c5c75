package db

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage(account, key string, savedAt int64) *ArchivedMessage {
	return &ArchivedMessage{
		AccountEmail:  account,
		Key:           key,
		SenderAddress: "alice@example.com",
		SenderName:    "Alice",
		Subject:       "Subject " + key,
		Date:          1700000000,
		HTML:          "<p>hello</p>",
		SavedAt:       savedAt,
		Attachments: []ArchivedAttachment{
			{Key: key + "-a2", Filename: "b.pdf", Size: 2000},
			{Key: key + "-a1", Filename: "a.txt", Size: 12},
		},
	}
}

func TestNewArchiveStore(t *testing.T) {
	assert.Nil(t, NewArchiveStore(nil))

	store := openTestStore(t)
	archive := NewArchiveStore(store)
	assert.Equal(t, store.db, archive.db)
}

func TestArchiveStore_NotInitialized(t *testing.T) {
	ctx := context.Background()
	for _, as := range []*ArchiveStore{nil, {db: nil}} {
		assert.ErrorContains(t, as.SaveMessage(ctx, sampleMessage("a@t.co", "k", 1)), "archive store not initialized")
		_, err := as.GetMessage(ctx, "a@t.co", "k")
		assert.ErrorContains(t, err, "archive store not initialized")
		_, err = as.ListMessages(ctx, "", 0)
		assert.ErrorContains(t, err, "archive store not initialized")
		assert.ErrorContains(t, as.DeleteMessage(ctx, "a@t.co", "k"), "archive store not initialized")
		_, err = as.CountMessages(ctx)
		assert.ErrorContains(t, err, "archive store not initialized")
	}
}

func TestArchiveStore_SaveValidation(t *testing.T) {
	ctx := context.Background()
	archive := NewArchiveStore(openTestStore(t))

	tests := []struct {
		name string
		msg  *ArchivedMessage
	}{
		{"nil_message", nil},
		{"empty_account", &ArchivedMessage{Key: "k"}},
		{"whitespace_key", &ArchivedMessage{AccountEmail: "a@t.co", Key: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := archive.SaveMessage(ctx, tt.msg)
			assert.ErrorContains(t, err, "cannot be empty")
		})
	}
}

func TestArchiveStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	archive := NewArchiveStore(openTestStore(t))

	in := sampleMessage("box1@tethbox.test", "k1", 100)
	require.NoError(t, archive.SaveMessage(ctx, in))

	got, err := archive.GetMessage(ctx, "box1@tethbox.test", "k1")
	require.NoError(t, err)
	assert.Equal(t, in, got)
	assert.Equal(t, "k1-a2", got.Attachments[0].Key, "attachment order kept")
}

func TestArchiveStore_GetMissing(t *testing.T) {
	archive := NewArchiveStore(openTestStore(t))

	_, err := archive.GetMessage(context.Background(), "box1@tethbox.test", "nope")
	assert.ErrorIs(t, err, ErrNotArchived)
}

func TestArchiveStore_Upsert(t *testing.T) {
	ctx := context.Background()
	archive := NewArchiveStore(openTestStore(t))

	require.NoError(t, archive.SaveMessage(ctx, sampleMessage("box1@tethbox.test", "k1", 100)))

	updated := sampleMessage("box1@tethbox.test", "k1", 200)
	updated.Subject = "changed"
	updated.Attachments = updated.Attachments[:1]
	require.NoError(t, archive.SaveMessage(ctx, updated))

	got, err := archive.GetMessage(ctx, "box1@tethbox.test", "k1")
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Subject)
	assert.Equal(t, int64(200), got.SavedAt)
	assert.Len(t, got.Attachments, 1)

	n, err := archive.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestArchiveStore_ListOrderingAndFilter(t *testing.T) {
	ctx := context.Background()
	archive := NewArchiveStore(openTestStore(t))

	require.NoError(t, archive.SaveMessage(ctx, sampleMessage("box1@tethbox.test", "k1", 100)))
	require.NoError(t, archive.SaveMessage(ctx, sampleMessage("box1@tethbox.test", "k2", 300)))
	require.NoError(t, archive.SaveMessage(ctx, sampleMessage("box2@tethbox.test", "k3", 200)))

	all, err := archive.ListMessages(ctx, "", 0)
	require.NoError(t, err)
	var keys []string
	for _, m := range all {
		keys = append(keys, m.Key)
		assert.Len(t, m.Attachments, 2)
	}
	assert.Equal(t, []string{"k2", "k3", "k1"}, keys)

	one, err := archive.ListMessages(ctx, "box1@tethbox.test", 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "k2", one[0].Key)

	none, err := archive.ListMessages(ctx, "nobody@tethbox.test", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestArchiveStore_AccountIsolation(t *testing.T) {
	ctx := context.Background()
	archive := NewArchiveStore(openTestStore(t))

	// message keys are only unique per mailbox
	require.NoError(t, archive.SaveMessage(ctx, sampleMessage("box1@tethbox.test", "k1", 100)))
	other := sampleMessage("box2@tethbox.test", "k1", 100)
	other.Subject = "other box"
	require.NoError(t, archive.SaveMessage(ctx, other))

	got, err := archive.GetMessage(ctx, "box1@tethbox.test", "k1")
	require.NoError(t, err)
	assert.Equal(t, "Subject k1", got.Subject)

	got, err = archive.GetMessage(ctx, "box2@tethbox.test", "k1")
	require.NoError(t, err)
	assert.Equal(t, "other box", got.Subject)
}

func TestArchiveStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	archive := NewArchiveStore(store)

	require.NoError(t, archive.SaveMessage(ctx, sampleMessage("box1@tethbox.test", "k1", 100)))
	require.NoError(t, archive.DeleteMessage(ctx, "box1@tethbox.test", "k1"))

	_, err := archive.GetMessage(ctx, "box1@tethbox.test", "k1")
	assert.ErrorIs(t, err, ErrNotArchived)

	var n int
	require.NoError(t, store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM archived_attachments").Scan(&n))
	assert.Equal(t, 0, n)

	assert.ErrorIs(t, archive.DeleteMessage(ctx, "box1@tethbox.test", "k1"), ErrNotArchived)
}

func TestArchiveStore_SpecialCharacters(t *testing.T) {
	ctx := context.Background()
	archive := NewArchiveStore(openTestStore(t))

	m := sampleMessage("box1@tethbox.test", "k'1\"; DROP TABLE archived_messages; --", 1)
	m.Subject = "Ünïcødé 🚀 'quoted'"
	require.NoError(t, archive.SaveMessage(ctx, m))

	got, err := archive.GetMessage(ctx, m.AccountEmail, m.Key)
	require.NoError(t, err)
	assert.Equal(t, m.Subject, got.Subject)
}

func TestArchiveStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	archive := NewArchiveStore(openTestStore(t))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- archive.SaveMessage(ctx, sampleMessage("box1@tethbox.test", string(rune('a'+i)), int64(i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	n, err := archive.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}
