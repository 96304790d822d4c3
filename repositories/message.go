//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-gateway/domain"
	"chat-gateway/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	CreateMessage(senderID, receiverID, content string, messageType domain.MessageType) (domain.Message, error)
	Conversation(userA, userB string, cursor *string) ([]domain.Message, *string, error)
	UpdateStatus(message domain.Message, status domain.MessageStatus) error
	MarkRead(senderID, receiverID string) (int, time.Time, error)
	CountUnread(receiverID, senderID string) (int, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// diskMessage is the stored shape of a message.
type diskMessage struct {
	ID         uuid.UUID  `json:"id"`
	SenderID   string     `json:"senderId"`
	ReceiverID string     `json:"receiverId"`
	Content    string     `json:"content"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	IsRead     bool       `json:"isRead"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// pairKey canonicalizes a conversation between two identities so that both
// directions land under the same prefix.
func pairKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + "|" + userB
}

// messageKey is formatted as "msg:{pair}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		pairKey(m.SenderID, m.ReceiverID),
		m.CreatedAt.UnixNano(),
		m.ID,
	))
}

// CreateMessage persists a new message with status=sent and returns it.
func (m MessageRepository) CreateMessage(senderID, receiverID, content string,
	messageType domain.MessageType) (domain.Message, error) {
	if messageType == "" {
		messageType = domain.TypeText
	}
	message := domain.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Type:       messageType,
		Status:     domain.StatusSent,
		CreatedAt:  time.Now().UTC(),
	}

	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), bytes)
	})
	return message, err
}

// Conversation retrieves messages exchanged between two users, newest first,
// using a prefix scan. Thanks to the padded timestamp in the key, messages are
// naturally sorted by time. It stops once the configured limitMessages is reached.
func (m MessageRepository) Conversation(userA, userB string, cursor *string) ([]domain.Message, *string, error) {
	var rawValues [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", pairKey(userA, userB))
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(rawValues) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				rawValues = append(rawValues, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var messages []domain.Message
	for _, b := range rawValues {
		var dm diskMessage
		if err = json.Unmarshal(b, &dm); err != nil {
			return nil, nil, err
		}
		messages = append(messages, toMessage(dm))
	}
	if len(messages) == 0 {
		// An exhausted scan yields no cursor, giving pagination loops a
		// clean termination signal.
		return nil, nil, nil
	}
	return messages, &lastKey, nil
}

// UpdateStatus advances a message along its one-way lifecycle, rewriting the
// stored record in place. A regression on the caller's copy is rejected up
// front; the stored row is re-checked inside the transaction because the
// caller may hold a stale copy (a mark_read can land between persisting a
// message and recording its delivery). A stale advance is a silent no-op.
func (m MessageRepository) UpdateStatus(message domain.Message, status domain.MessageStatus) error {
	if !message.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", errors.ErrStatusRegression, message.Status, status)
	}

	key := messageKey(message)
	return m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return errors.ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		var dm diskMessage
		if err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &dm)
		}); err != nil {
			return err
		}
		if !domain.MessageStatus(dm.Status).CanTransitionTo(status) {
			return nil
		}
		dm.Status = string(status)
		bytes, err := json.Marshal(dm)
		if err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
}

// MarkRead bulk-updates every unread message from senderID to receiverID,
// stamping all of them with one consistent ReadAt. Returns the number of rows
// changed; a second call over the same backlog returns zero.
func (m MessageRepository) MarkRead(senderID, receiverID string) (int, time.Time, error) {
	readAt := time.Now().UTC()
	count := 0
	err := m.db.Update(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", pairKey(senderID, receiverID)))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var dm diskMessage
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &dm)
			}); err != nil {
				return err
			}
			if dm.SenderID != senderID || dm.ReceiverID != receiverID || dm.IsRead {
				continue
			}
			message := toMessage(dm)
			message.MarkRead(readAt)
			bytes, err := json.Marshal(fromMessage(message))
			if err != nil {
				return err
			}
			if err = txn.Set(item.KeyCopy(nil), bytes); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, time.Time{}, err
	}
	return count, readAt, nil
}

// CountUnread counts pending messages from senderID that receiverID has not read yet.
func (m MessageRepository) CountUnread(receiverID, senderID string) (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", pairKey(senderID, receiverID)))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var dm diskMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &dm)
			}); err != nil {
				return err
			}
			if dm.SenderID == senderID && dm.ReceiverID == receiverID && !dm.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:         message.ID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		Content:    message.Content,
		Type:       string(message.Type),
		Status:     string(message.Status),
		IsRead:     message.IsRead,
		ReadAt:     message.ReadAt,
		CreatedAt:  message.CreatedAt,
	}
}

func toMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:         dm.ID,
		SenderID:   dm.SenderID,
		ReceiverID: dm.ReceiverID,
		Content:    dm.Content,
		Type:       domain.MessageType(dm.Type),
		Status:     domain.MessageStatus(dm.Status),
		IsRead:     dm.IsRead,
		ReadAt:     dm.ReadAt,
		CreatedAt:  dm.CreatedAt,
	}
}
