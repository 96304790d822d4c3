package gateway

import (
	"log/slog"

	"chat-gateway/contract"
	"chat-gateway/protocol"
	"chat-gateway/repositories"
)

// Broadcaster pushes presence transitions to the live connection set.
// Delivery is best-effort per connection: one failed send never interrupts
// the loop or affects the others.
type Broadcaster struct {
	log      *slog.Logger
	registry contract.IRegistry
	users    repositories.IUserRepository
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry,
	users repositories.IUserRepository) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, users: users}
}

// AnnounceOnline tells every other connection that a user came online.
func (b *Broadcaster) AnnounceOnline(userID, username string) {
	b.announce(protocol.UserOnline(userID, username), userID)
}

// AnnounceOffline tells every other connection that a user went offline.
func (b *Broadcaster) AnnounceOffline(userID, username string) {
	b.announce(protocol.UserOffline(userID, username), userID)
}

func (b *Broadcaster) announce(payload []byte, subjectID string) {
	for _, s := range b.registry.Sessions() {
		if s.UserID() == subjectID {
			continue
		}
		if !s.Enqueue(payload) {
			b.log.Debug("Presence broadcast dropped", "user_id", s.UserID())
		}
	}
}

// RefreshSnapshot recomputes the online set from the store and pushes it to
// every live connection, including the one that just transitioned. Cost is
// O(online_count) per churn event, which is accepted for this deployment size.
func (b *Broadcaster) RefreshSnapshot() {
	users, err := b.users.ListOnline()
	if err != nil {
		b.log.Error("Online snapshot query failed", "err", err)
		return
	}
	payload := protocol.OnlineUsers(users)
	for _, s := range b.registry.Sessions() {
		if !s.Enqueue(payload) {
			b.log.Debug("Snapshot push dropped", "user_id", s.UserID())
		}
	}
}
