// Package runtime owns the process-wide mutable state of the gateway: the
// identity to connection registry. It contains no business rules; handlers
// go through the registry API and never see the underlying map.
package runtime

import (
	"sync"

	"chat-gateway/contract"
	"chat-gateway/protocol"
)

// Registry maps each identity to its single live session. All mutations are
// serialized behind one mutex so that an eviction racing a fresh registration
// can never resurrect a stale mapping.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.Session // map user ID -> live session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]contract.Session),
	}
}

// Register installs a session as the one live connection for its identity.
// If a prior session exists it is swapped out first, then closed with a
// distinct reason so the old client knows it was superseded rather than
// dropped. The evicted session is returned for the caller's bookkeeping.
func (r *Registry) Register(s contract.Session) contract.Session {
	r.mu.Lock()
	prev := r.sessions[s.UserID()]
	r.sessions[s.UserID()] = s
	r.mu.Unlock()

	// Closing outside the lock: the close triggers the old connection's own
	// teardown, which calls back into Deregister.
	if prev != nil {
		prev.Close(protocol.CloseSuperseded, "superseded by new connection")
	}
	return prev
}

// Lookup resolves an identity to its live session, if any.
func (r *Registry) Lookup(userID string) (contract.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// Deregister removes a session only if it is still the one stored for its
// identity. This guards against a late close event of an evicted connection
// removing the newer one. Reports whether a removal happened.
func (r *Registry) Deregister(s contract.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[s.UserID()]
	if !ok || current != s {
		return false
	}
	delete(r.sessions, s.UserID())
	return true
}

// Sessions returns a point-in-time snapshot of all live sessions. Callers
// iterate the snapshot without holding the registry lock, so a slow or
// failing peer cannot stall registrations.
func (r *Registry) Sessions() []contract.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make([]contract.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	return snapshot
}

// Count equals the current online-user count for a single-process deployment.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
