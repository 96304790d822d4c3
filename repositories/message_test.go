package repositories

import (
	"log/slog"
	"testing"
	"time"

	"chat-gateway/domain"
	"chat-gateway/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Conversation_Returns_Newest_First(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default(), nil)

	// Given three messages exchanged in both directions
	contents := []string{"hello", "hi there", "how are you"}
	senders := []string{"alice", "bob", "alice"}
	receivers := []string{"bob", "alice", "bob"}
	for i := range contents {
		_, err := repository.CreateMessage(senders[i], receivers[i], contents[i], domain.TypeText)
		req.NoError(err)
		// Distinct creation timestamps keep the key order deterministic
		time.Sleep(2 * time.Millisecond)
	}

	// When fetching the conversation from either side
	messages, _, err := repository.Conversation("bob", "alice", nil)
	req.NoError(err)

	// Then both directions share one history, newest first
	req.Len(messages, 3)
	req.Equal("how are you", messages[0].Content)
	req.Equal("hi there", messages[1].Content)
	req.Equal("hello", messages[2].Content)
	req.Equal(domain.StatusSent, messages[0].Status)
}

func Test_Conversation_Limit_And_Cursor(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	limit := 2
	repository := NewMessageRepository(db, slog.Default(), &limit)

	for _, content := range []string{"one", "two", "three"} {
		_, err := repository.CreateMessage("alice", "bob", content, domain.TypeText)
		req.NoError(err)
		time.Sleep(2 * time.Millisecond)
	}

	// First page: the two newest
	page1, cursor, err := repository.Conversation("alice", "bob", nil)
	req.NoError(err)
	req.Len(page1, 2)
	req.Equal("three", page1[0].Content)
	req.Equal("two", page1[1].Content)
	req.NotNil(cursor)

	// Second page resumes past the cursor
	page2, cursor, err := repository.Conversation("alice", "bob", cursor)
	req.NoError(err)
	req.Len(page2, 1)
	req.Equal("one", page2[0].Content)
	req.NotNil(cursor)

	// A third page past the oldest message is empty and ends the pagination
	page3, cursor, err := repository.Conversation("alice", "bob", cursor)
	req.NoError(err)
	req.Empty(page3)
	req.Nil(cursor)
}

func Test_Conversation_Empty_Has_No_Cursor(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default(), nil)

	messages, cursor, err := repository.Conversation("alice", "bob", nil)
	req.NoError(err)
	req.Empty(messages)
	req.Nil(cursor)
}

func Test_Conversation_Is_Isolated_Per_Pair(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default(), nil)

	_, err := repository.CreateMessage("alice", "bob", "for bob", domain.TypeText)
	req.NoError(err)
	_, err = repository.CreateMessage("alice", "carol", "for carol", domain.TypeText)
	req.NoError(err)

	messages, _, err := repository.Conversation("alice", "bob", nil)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("for bob", messages[0].Content)
}

func Test_UpdateStatus_Advances_But_Never_Regresses(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default(), nil)

	message, err := repository.CreateMessage("alice", "bob", "ping", domain.TypeText)
	req.NoError(err)

	// sent -> delivered is a legal advance
	req.NoError(repository.UpdateStatus(message, domain.StatusDelivered))

	messages, _, err := repository.Conversation("alice", "bob", nil)
	req.NoError(err)
	req.Equal(domain.StatusDelivered, messages[0].Status)

	// delivered -> sent is a regression and leaves the store untouched
	err = repository.UpdateStatus(messages[0], domain.StatusSent)
	req.ErrorIs(err, errors.ErrStatusRegression)

	messages, _, err = repository.Conversation("alice", "bob", nil)
	req.NoError(err)
	req.Equal(domain.StatusDelivered, messages[0].Status)
}

func Test_UpdateStatus_Keeps_Read_When_Delivery_Lags(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default(), nil)

	// Given a message that the receiver reads before its delivery is recorded
	message, err := repository.CreateMessage("alice", "bob", "ping", domain.TypeText)
	req.NoError(err)

	count, _, err := repository.MarkRead("alice", "bob")
	req.NoError(err)
	req.Equal(1, count)

	// When the delivery update lands with the stale pre-read copy
	req.NoError(repository.UpdateStatus(message, domain.StatusDelivered))

	// Then the stored row keeps the further-along state
	messages, _, err := repository.Conversation("alice", "bob", nil)
	req.NoError(err)
	req.Equal(domain.StatusRead, messages[0].Status)
	req.True(messages[0].IsRead)
}

func Test_UpdateStatus_Unknown_Message(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default(), nil)

	ghost := domain.Message{
		SenderID:   "alice",
		ReceiverID: "bob",
		Status:     domain.StatusSent,
		CreatedAt:  time.Now().UTC(),
	}
	err := repository.UpdateStatus(ghost, domain.StatusDelivered)
	req.ErrorIs(err, errors.ErrMessageNotFound)
}

func Test_MarkRead_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default(), nil)

	// Given two unread messages from alice to bob and one the other way
	_, err := repository.CreateMessage("alice", "bob", "first", domain.TypeText)
	req.NoError(err)
	_, err = repository.CreateMessage("alice", "bob", "second", domain.TypeText)
	req.NoError(err)
	_, err = repository.CreateMessage("bob", "alice", "reply", domain.TypeText)
	req.NoError(err)

	unread, err := repository.CountUnread("bob", "alice")
	req.NoError(err)
	req.Equal(2, unread)

	// When bob reads the conversation
	count, readAt, err := repository.MarkRead("alice", "bob")
	req.NoError(err)
	req.Equal(2, count)
	req.False(readAt.IsZero())

	// Then every affected message carries the same read timestamp
	messages, _, err := repository.Conversation("alice", "bob", nil)
	req.NoError(err)
	for _, m := range messages {
		if m.SenderID != "alice" {
			continue
		}
		req.True(m.IsRead)
		req.NotNil(m.ReadAt)
		req.Equal(readAt.UnixNano(), m.ReadAt.UnixNano())
		req.Equal(domain.StatusRead, m.Status)
	}

	// And bob's own message stays untouched
	unread, err = repository.CountUnread("alice", "bob")
	req.NoError(err)
	req.Equal(1, unread)

	// A second pass over the same backlog changes nothing
	count, _, err = repository.MarkRead("alice", "bob")
	req.NoError(err)
	req.Equal(0, count)
}
