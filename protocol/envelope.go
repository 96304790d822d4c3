// Package protocol defines the wire units exchanged over a connection:
// a discriminated {type, data} envelope, inbound payloads with their
// validation rules, outbound payload builders, and the close codes used
// to reject a handshake.
package protocol

import "encoding/json"

// Envelope is the wire unit. It is never persisted; it exists only for
// the duration of transmission.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client -> server envelope types.
const (
	TypeChatMessage    = "chat_message"
	TypeTypingStart    = "typing_start"
	TypeTypingStop     = "typing_stop"
	TypeMarkRead       = "mark_read"
	TypeGetOnlineUsers = "get_online_users"
)

// Server -> client envelope types.
const (
	TypeConnectionEstablished = "connection_established"
	TypeOnlineUsers           = "online_users"
	TypeUserOnline            = "user_online"
	TypeUserOffline           = "user_offline"
	TypeNewMessage            = "new_message"
	TypeMessageSent           = "message_sent"
	TypeMessageDelivered      = "message_delivered"
	TypeMessagesRead          = "messages_read"
	TypeMarkReadSuccess       = "mark_read_success"
	TypeTypingIndicator       = "typing_indicator"
	TypeError                 = "error"
)

// ChatMessagePayload carries a one-to-one message sending intent.
type ChatMessagePayload struct {
	ReceiverID  string `json:"receiverId" validate:"required"`
	Content     string `json:"content" validate:"required"`
	MessageType string `json:"messageType" validate:"omitempty,oneof=text image file"`
}

// TypingPayload carries a typing_start or typing_stop signal.
type TypingPayload struct {
	ReceiverID string `json:"receiverId" validate:"required"`
}

// MarkReadPayload names the counterparty whose messages are being read.
type MarkReadPayload struct {
	SenderID string `json:"senderId" validate:"required"`
}

// Decode parses a raw frame into an Envelope.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(raw, &env)
	return env, err
}
