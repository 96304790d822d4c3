package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/mocks"
	"chat-gateway/moderation"
	"chat-gateway/protocol"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// recordSession captures every enqueued frame for assertions.
type recordSession struct {
	userID   string
	username string
	frames   [][]byte
}

func (s *recordSession) UserID() string   { return s.userID }
func (s *recordSession) Username() string { return s.username }
func (s *recordSession) Enqueue(payload []byte) bool {
	s.frames = append(s.frames, payload)
	return true
}
func (s *recordSession) Ping() error                   { return nil }
func (s *recordSession) AwaitingPong() bool            { return false }
func (s *recordSession) MarkAwaitingPong()             {}
func (s *recordSession) Close(code int, reason string) {}

func (s *recordSession) envelopeTypes(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, frame := range s.frames {
		env, err := protocol.Decode(frame)
		require.NoError(t, err)
		types = append(types, env.Type)
	}
	return types
}

func testModerator(t *testing.T) *moderation.Moderator {
	t.Helper()
	moderator, err := moderation.NewModerator([]string{"darn"}, '*')
	require.NoError(t, err)
	return moderator
}

func chatFrame(receiverID, content string) []byte {
	data, _ := json.Marshal(protocol.ChatMessagePayload{ReceiverID: receiverID, Content: content})
	raw, _ := json.Marshal(protocol.Envelope{Type: protocol.TypeChatMessage, Data: data})
	return raw
}

func TestRouter_ChatMessage_PersistsThenDelivers(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	mockUsers := mocks.NewMockIUserRepository(ctrl)

	sender := &recordSession{userID: "alice", username: "Alice"}
	receiver := &recordSession{userID: "bob", username: "Bob"}

	stored := domain.Message{
		ID:         uuid.New(),
		SenderID:   "alice",
		ReceiverID: "bob",
		Content:    "hello bob",
		Type:       domain.TypeText,
		Status:     domain.StatusSent,
		CreatedAt:  time.Now().UTC(),
	}

	// Persistence happens before any delivery attempt
	mockMessages.EXPECT().
		CreateMessage("alice", "bob", "hello bob", gomock.Any()).
		Return(stored, nil).
		Times(1)
	mockRegistry.EXPECT().Lookup("bob").Return(contract.Session(receiver), true).Times(1)
	mockMessages.EXPECT().UpdateStatus(stored, domain.StatusDelivered).Return(nil).Times(1)

	router := NewRouter(slog.Default(), mockRegistry, mockMessages, mockUsers, testModerator(t), 2000)
	router.Route(sender, chatFrame("bob", "hello bob"))

	// Sender gets the ack, then the delivery receipt
	req.Equal([]string{protocol.TypeMessageSent, protocol.TypeMessageDelivered}, sender.envelopeTypes(t))

	// Receiver gets the message itself
	req.Equal([]string{protocol.TypeNewMessage}, receiver.envelopeTypes(t))
	env, err := protocol.Decode(receiver.frames[0])
	req.NoError(err)
	var data struct {
		MessageID      string `json:"messageId"`
		SenderUsername string `json:"senderUsername"`
		Content        string `json:"content"`
	}
	req.NoError(json.Unmarshal(env.Data, &data))
	req.Equal(stored.ID.String(), data.MessageID)
	req.Equal("Alice", data.SenderUsername)
	req.Equal("hello bob", data.Content)
}

func TestRouter_ChatMessage_OfflineReceiverStaysSent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	mockUsers := mocks.NewMockIUserRepository(ctrl)

	sender := &recordSession{userID: "alice", username: "Alice"}

	stored := domain.Message{
		ID: uuid.New(), SenderID: "alice", ReceiverID: "bob",
		Content: "are you there", Type: domain.TypeText,
		Status: domain.StatusSent, CreatedAt: time.Now().UTC(),
	}

	mockMessages.EXPECT().
		CreateMessage("alice", "bob", "are you there", gomock.Any()).
		Return(stored, nil).
		Times(1)
	mockRegistry.EXPECT().Lookup("bob").Return(nil, false).Times(1)

	// Status never advances for an offline receiver
	mockMessages.EXPECT().UpdateStatus(gomock.Any(), gomock.Any()).Times(0)

	router := NewRouter(slog.Default(), mockRegistry, mockMessages, mockUsers, testModerator(t), 2000)
	router.Route(sender, chatFrame("bob", "are you there"))

	req.Equal([]string{protocol.TypeMessageSent}, sender.envelopeTypes(t))
}

func TestRouter_ChatMessage_Rejections(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	mockUsers := mocks.NewMockIUserRepository(ctrl)

	// None of these ever reach the store
	mockMessages.EXPECT().CreateMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	router := NewRouter(slog.Default(), mockRegistry, mockMessages, mockUsers, testModerator(t), 50)

	cases := map[string][]byte{
		"self send":        chatFrame("alice", "note to self"),
		"missing receiver": chatFrame("", "hello"),
		"empty content":    chatFrame("bob", ""),
		"content too long": chatFrame("bob", fmt.Sprintf("%0100d", 0)),
		"malformed frame":  []byte("{not json"),
		"unknown type":     []byte(`{"type":"subscribe","data":{}}`),
	}

	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			sender := &recordSession{userID: "alice", username: "Alice"}

			router.Route(sender, frame)

			// The connection answers with an error envelope and stays usable
			req.Equal([]string{protocol.TypeError}, sender.envelopeTypes(t))
		})
	}
}

func TestRouter_ChatMessage_CensorsForbiddenWords(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	mockUsers := mocks.NewMockIUserRepository(ctrl)

	sender := &recordSession{userID: "alice", username: "Alice"}

	// The masked form is what gets persisted
	mockMessages.EXPECT().
		CreateMessage("alice", "bob", "well **** it", gomock.Any()).
		DoAndReturn(func(senderID, receiverID, content string, mt domain.MessageType) (domain.Message, error) {
			return domain.Message{
				ID: uuid.New(), SenderID: senderID, ReceiverID: receiverID,
				Content: content, Type: domain.TypeText,
				Status: domain.StatusSent, CreatedAt: time.Now().UTC(),
			}, nil
		}).
		Times(1)
	mockRegistry.EXPECT().Lookup("bob").Return(nil, false).Times(1)

	router := NewRouter(slog.Default(), mockRegistry, mockMessages, mockUsers, testModerator(t), 2000)
	router.Route(sender, chatFrame("bob", "well darn it"))

	req.Equal([]string{protocol.TypeMessageSent}, sender.envelopeTypes(t))
}

func TestRouter_Typing_RelayedOnlyWhenOnline(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	mockUsers := mocks.NewMockIUserRepository(ctrl)

	sender := &recordSession{userID: "alice", username: "Alice"}
	receiver := &recordSession{userID: "bob", username: "Bob"}

	router := NewRouter(slog.Default(), mockRegistry, mockMessages, mockUsers, testModerator(t), 2000)

	typingFrame := func(envType string) []byte {
		data, _ := json.Marshal(protocol.TypingPayload{ReceiverID: "bob"})
		raw, _ := json.Marshal(protocol.Envelope{Type: envType, Data: data})
		return raw
	}

	// Online receiver sees start then stop
	mockRegistry.EXPECT().Lookup("bob").Return(contract.Session(receiver), true).Times(2)
	router.Route(sender, typingFrame(protocol.TypeTypingStart))
	router.Route(sender, typingFrame(protocol.TypeTypingStop))

	req.Equal([]string{protocol.TypeTypingIndicator, protocol.TypeTypingIndicator}, receiver.envelopeTypes(t))

	var first, second struct {
		UserID   string `json:"userId"`
		IsTyping bool   `json:"isTyping"`
	}
	env, _ := protocol.Decode(receiver.frames[0])
	req.NoError(json.Unmarshal(env.Data, &first))
	env, _ = protocol.Decode(receiver.frames[1])
	req.NoError(json.Unmarshal(env.Data, &second))
	req.Equal("alice", first.UserID)
	req.True(first.IsTyping)
	req.False(second.IsTyping)

	// Offline receiver: the signal is dropped without an error
	mockRegistry.EXPECT().Lookup("bob").Return(nil, false).Times(1)
	router.Route(sender, typingFrame(protocol.TypeTypingStart))
	req.Empty(sender.frames)
}

func TestRouter_MarkRead_NotifiesCounterparty(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	mockUsers := mocks.NewMockIUserRepository(ctrl)

	reader := &recordSession{userID: "bob", username: "Bob"}
	counterparty := &recordSession{userID: "alice", username: "Alice"}

	readAt := time.Now().UTC()
	mockMessages.EXPECT().MarkRead("alice", "bob").Return(3, readAt, nil).Times(1)
	mockRegistry.EXPECT().Lookup("alice").Return(contract.Session(counterparty), true).Times(1)

	router := NewRouter(slog.Default(), mockRegistry, mockMessages, mockUsers, testModerator(t), 2000)

	data, _ := json.Marshal(protocol.MarkReadPayload{SenderID: "alice"})
	raw, _ := json.Marshal(protocol.Envelope{Type: protocol.TypeMarkRead, Data: data})
	router.Route(reader, raw)

	req.Equal([]string{protocol.TypeMessagesRead}, counterparty.envelopeTypes(t))
	req.Equal([]string{protocol.TypeMarkReadSuccess}, reader.envelopeTypes(t))

	env, _ := protocol.Decode(reader.frames[0])
	var success struct {
		SenderID    string `json:"senderId"`
		MarkedCount int    `json:"markedCount"`
	}
	req.NoError(json.Unmarshal(env.Data, &success))
	req.Equal("alice", success.SenderID)
	req.Equal(3, success.MarkedCount)
}

func TestRouter_MarkRead_EmptyBacklogSkipsNotification(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	mockUsers := mocks.NewMockIUserRepository(ctrl)

	reader := &recordSession{userID: "bob", username: "Bob"}
	counterparty := &recordSession{userID: "alice", username: "Alice"}

	mockMessages.EXPECT().MarkRead("alice", "bob").Return(0, time.Now().UTC(), nil).Times(1)
	mockRegistry.EXPECT().Lookup("alice").Return(contract.Session(counterparty), true).Times(1)

	router := NewRouter(slog.Default(), mockRegistry, mockMessages, mockUsers, testModerator(t), 2000)

	data, _ := json.Marshal(protocol.MarkReadPayload{SenderID: "alice"})
	raw, _ := json.Marshal(protocol.Envelope{Type: protocol.TypeMarkRead, Data: data})
	router.Route(reader, raw)

	// The requester still gets its confirmation with a zero count
	req.Empty(counterparty.frames)
	req.Equal([]string{protocol.TypeMarkReadSuccess}, reader.envelopeTypes(t))
}

func TestRouter_GetOnlineUsers(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	mockUsers := mocks.NewMockIUserRepository(ctrl)

	sender := &recordSession{userID: "alice", username: "Alice"}

	mockUsers.EXPECT().ListOnline().Return([]domain.User{
		{ID: "alice", Username: "Alice", IsOnline: true},
		{ID: "bob", Username: "Bob", IsOnline: true},
	}, nil).Times(1)

	router := NewRouter(slog.Default(), mockRegistry, mockMessages, mockUsers, testModerator(t), 2000)
	router.Route(sender, []byte(`{"type":"get_online_users","data":{}}`))

	req.Equal([]string{protocol.TypeOnlineUsers}, sender.envelopeTypes(t))

	env, _ := protocol.Decode(sender.frames[0])
	var data struct {
		Users       []protocol.UserInfo `json:"users"`
		TotalOnline int                 `json:"totalOnline"`
	}
	req.NoError(json.Unmarshal(env.Data, &data))
	req.Equal(2, data.TotalOnline)
	req.Len(data.Users, 2)
}
