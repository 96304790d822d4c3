//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Identity is a resolved chat participant: an opaque user key plus its
// display label. Immutable for the lifetime of a session.
type Identity struct {
	UserID   string
	Username string
}

// ICredentialVerifier resolves a bearer credential into an Identity.
// Invalid or expired credentials return an error; no retry is attempted.
type ICredentialVerifier interface {
	Verify(token string) (Identity, error)
}

// Session is the registry's view of one live duplex connection.
// Enqueue is best-effort and must never block the caller; a full outbound
// buffer means the peer stopped draining and the session is torn down.
type Session interface {
	UserID() string
	Username() string
	Enqueue(payload []byte) bool
	Ping() error
	AwaitingPong() bool
	MarkAwaitingPong()
	Close(code int, reason string)
}

// IRegistry is the single source of truth for "is this user reachable now".
// It holds at most one session per identity: registering a second session
// for an already-registered identity evicts the prior one.
type IRegistry interface {
	Register(s Session) (evicted Session)
	Lookup(userID string) (Session, bool)
	Deregister(s Session) bool
	Sessions() []Session
	Count() int
}
