package protocol

import (
	"encoding/json"
	"time"

	"chat-gateway/domain"

	"github.com/samber/lo"
)

// UserInfo is the public shape of an identity inside presence payloads.
type UserInfo struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type connectionEstablishedData struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type onlineUsersData struct {
	Users       []UserInfo `json:"users"`
	TotalOnline int        `json:"totalOnline"`
	Timestamp   time.Time  `json:"timestamp"`
}

type presenceData struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

type newMessageData struct {
	MessageID      string    `json:"messageId"`
	SenderID       string    `json:"senderId"`
	SenderUsername string    `json:"senderUsername"`
	Content        string    `json:"content"`
	MessageType    string    `json:"messageType"`
	CreatedAt      time.Time `json:"createdAt"`
}

type messageSentData struct {
	MessageID  string    `json:"messageId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	Status     string    `json:"status"`
}

type messageDeliveredData struct {
	MessageID   string    `json:"messageId"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

type messagesReadData struct {
	ReadBy         string    `json:"readBy"`
	ReadByUsername string    `json:"readByUsername"`
	ReadAt         time.Time `json:"readAt"`
}

type markReadSuccessData struct {
	SenderID    string `json:"senderId"`
	MarkedCount int    `json:"markedCount"`
}

type typingIndicatorData struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type errorData struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func ConnectionEstablished(userID, username string) []byte {
	return encode(TypeConnectionEstablished, connectionEstablishedData{UserID: userID, Username: username})
}

func OnlineUsers(users []domain.User) []byte {
	infos := lo.Map(users, func(u domain.User, _ int) UserInfo {
		return UserInfo{UserID: u.ID, Username: u.Username}
	})
	return encode(TypeOnlineUsers, onlineUsersData{
		Users:       infos,
		TotalOnline: len(infos),
		Timestamp:   time.Now().UTC(),
	})
}

func UserOnline(userID, username string) []byte {
	return encode(TypeUserOnline, presenceData{UserID: userID, Username: username, Timestamp: time.Now().UTC()})
}

func UserOffline(userID, username string) []byte {
	return encode(TypeUserOffline, presenceData{UserID: userID, Username: username, Timestamp: time.Now().UTC()})
}

func NewMessage(m domain.Message, senderUsername string) []byte {
	return encode(TypeNewMessage, newMessageData{
		MessageID:      m.ID.String(),
		SenderID:       m.SenderID,
		SenderUsername: senderUsername,
		Content:        m.Content,
		MessageType:    string(m.Type),
		CreatedAt:      m.CreatedAt,
	})
}

func MessageSent(m domain.Message) []byte {
	return encode(TypeMessageSent, messageSentData{
		MessageID:  m.ID.String(),
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		Status:     string(m.Status),
	})
}

func MessageDelivered(messageID string, deliveredAt time.Time) []byte {
	return encode(TypeMessageDelivered, messageDeliveredData{MessageID: messageID, DeliveredAt: deliveredAt})
}

func MessagesRead(readBy, readByUsername string, readAt time.Time) []byte {
	return encode(TypeMessagesRead, messagesReadData{ReadBy: readBy, ReadByUsername: readByUsername, ReadAt: readAt})
}

func MarkReadSuccess(senderID string, markedCount int) []byte {
	return encode(TypeMarkReadSuccess, markReadSuccessData{SenderID: senderID, MarkedCount: markedCount})
}

func TypingIndicator(userID, username string, isTyping bool) []byte {
	return encode(TypeTypingIndicator, typingIndicatorData{UserID: userID, Username: username, IsTyping: isTyping})
}

// Error builds a structured error envelope. The message is human-readable;
// raw internal errors never reach the wire.
func Error(message string) []byte {
	return encode(TypeError, errorData{Message: message, Timestamp: time.Now().UTC()})
}

func encode(envelopeType string, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		// All payloads above are plain structs; marshaling cannot fail.
		panic(err)
	}
	out, err := json.Marshal(Envelope{Type: envelopeType, Data: raw})
	if err != nil {
		panic(err)
	}
	return out
}
