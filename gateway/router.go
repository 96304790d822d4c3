package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/moderation"
	"chat-gateway/protocol"
	"chat-gateway/repositories"

	"github.com/go-playground/validator/v10"
)

// Router interprets inbound envelopes for one connection at a time. The tag
// set is closed: every known type has a handler, anything else gets an error
// envelope and the connection stays open. Persistence always happens before
// delivery; a missed delivery to an offline receiver is the expected outcome,
// not an error.
type Router struct {
	log              *slog.Logger
	registry         contract.IRegistry
	messages         repositories.IMessageRepository
	users            repositories.IUserRepository
	moderator        *moderation.Moderator
	validate         *validator.Validate
	maxContentLength int
}

func NewRouter(log *slog.Logger, registry contract.IRegistry,
	messages repositories.IMessageRepository, users repositories.IUserRepository,
	moderator *moderation.Moderator, maxContentLength int) *Router {
	return &Router{
		log:              log,
		registry:         registry,
		messages:         messages,
		users:            users,
		moderator:        moderator,
		validate:         validator.New(),
		maxContentLength: maxContentLength,
	}
}

// Route is the single entry point for inbound traffic.
func (r *Router) Route(sess contract.Session, raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		sess.Enqueue(protocol.Error("malformed envelope"))
		return
	}

	switch env.Type {
	case protocol.TypeChatMessage:
		r.handleChatMessage(sess, env.Data)
	case protocol.TypeTypingStart:
		r.handleTyping(sess, env.Data, true)
	case protocol.TypeTypingStop:
		r.handleTyping(sess, env.Data, false)
	case protocol.TypeMarkRead:
		r.handleMarkRead(sess, env.Data)
	case protocol.TypeGetOnlineUsers:
		r.handleGetOnlineUsers(sess)
	default:
		sess.Enqueue(protocol.Error(fmt.Sprintf("unknown envelope type %q", env.Type)))
	}
}

// handleChatMessage persists first and delivers best-effort: the stored row
// is the durable record, the synchronous push to the receiver is a bonus.
func (r *Router) handleChatMessage(sess contract.Session, data json.RawMessage) {
	var payload protocol.ChatMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		sess.Enqueue(protocol.Error("malformed chat_message payload"))
		return
	}
	if err := r.validate.Struct(payload); err != nil {
		sess.Enqueue(protocol.Error("receiverId and content are required"))
		return
	}
	if payload.ReceiverID == sess.UserID() {
		sess.Enqueue(protocol.Error(errors.ErrSelfMessage.Error()))
		return
	}
	if len(payload.Content) > r.maxContentLength {
		sess.Enqueue(protocol.Error(fmt.Sprintf("%s (%d max)", errors.ErrContentTooLong, r.maxContentLength)))
		return
	}

	content := r.moderator.Censor(payload.Content)
	if lang := r.moderator.DetectLanguage(content); lang != "" {
		r.log.Debug("Message language detected", "lang", lang)
	}

	message, err := r.messages.CreateMessage(sess.UserID(), payload.ReceiverID,
		content, domain.MessageType(payload.MessageType))
	if err != nil {
		r.log.Error("Message persist failed", "sender", sess.UserID(), "err", err)
		sess.Enqueue(protocol.Error("message could not be stored"))
		return
	}

	sess.Enqueue(protocol.MessageSent(message))

	receiver, online := r.registry.Lookup(payload.ReceiverID)
	if !online {
		// Offline receiver: delivery is deferred to the conversation query.
		return
	}
	if !receiver.Enqueue(protocol.NewMessage(message, sess.Username())) {
		return
	}
	if err := r.messages.UpdateStatus(message, domain.StatusDelivered); err != nil {
		r.log.Error("Status update failed", "message_id", message.ID, "err", err)
		sess.Enqueue(protocol.Error("delivery status could not be stored"))
		return
	}
	sess.Enqueue(protocol.MessageDelivered(message.ID.String(), time.Now().UTC()))
}

// handleTyping relays a transient signal; it has no registry footprint and is
// silently dropped when the receiver is offline.
func (r *Router) handleTyping(sess contract.Session, data json.RawMessage, isTyping bool) {
	var payload protocol.TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		sess.Enqueue(protocol.Error("malformed typing payload"))
		return
	}
	if err := r.validate.Struct(payload); err != nil {
		sess.Enqueue(protocol.Error("receiverId is required"))
		return
	}

	receiver, online := r.registry.Lookup(payload.ReceiverID)
	if !online {
		return
	}
	receiver.Enqueue(protocol.TypingIndicator(sess.UserID(), sess.Username(), isTyping))
}

// handleMarkRead bulk-marks the backlog from one counterparty, tells them if
// they are online, and always confirms the count to the requester.
func (r *Router) handleMarkRead(sess contract.Session, data json.RawMessage) {
	var payload protocol.MarkReadPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		sess.Enqueue(protocol.Error("malformed mark_read payload"))
		return
	}
	if err := r.validate.Struct(payload); err != nil {
		sess.Enqueue(protocol.Error("senderId is required"))
		return
	}

	count, readAt, err := r.messages.MarkRead(payload.SenderID, sess.UserID())
	if err != nil {
		r.log.Error("Mark read failed", "reader", sess.UserID(), "err", err)
		sess.Enqueue(protocol.Error("messages could not be marked read"))
		return
	}

	if counterparty, online := r.registry.Lookup(payload.SenderID); online && count > 0 {
		counterparty.Enqueue(protocol.MessagesRead(sess.UserID(), sess.Username(), readAt))
	}
	sess.Enqueue(protocol.MarkReadSuccess(payload.SenderID, count))
}

func (r *Router) handleGetOnlineUsers(sess contract.Session) {
	users, err := r.users.ListOnline()
	if err != nil {
		r.log.Error("Online users query failed", "err", err)
		sess.Enqueue(protocol.Error("online users could not be listed"))
		return
	}
	sess.Enqueue(protocol.OnlineUsers(users))
}
