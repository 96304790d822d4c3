package gateway

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"chat-gateway/contract"
	"chat-gateway/errors"
	"chat-gateway/protocol"
	"chat-gateway/repositories"

	"github.com/gorilla/websocket"
)

// Gateway drives the connection lifecycle: handshake, steady-state routing
// and teardown. One ServeWS call owns exactly one connection's goroutine;
// failures never leak outside it.
type Gateway struct {
	log            *slog.Logger
	registry       contract.IRegistry
	users          repositories.IUserRepository
	verifier       contract.ICredentialVerifier
	router         *Router
	broadcaster    *Broadcaster
	upgrader       websocket.Upgrader
	sendBufferSize int
	maxFrameSize   int64
	pongWait       time.Duration
}

func NewGateway(log *slog.Logger, registry contract.IRegistry,
	users repositories.IUserRepository, verifier contract.ICredentialVerifier,
	router *Router, broadcaster *Broadcaster,
	sendBufferSize int, maxFrameSize int64, heartbeatInterval time.Duration) *Gateway {
	return &Gateway{
		log:         log,
		registry:    registry,
		users:       users,
		verifier:    verifier,
		router:      router,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBufferSize: sendBufferSize,
		maxFrameSize:   maxFrameSize,
		// A connection survives missing one probe; the read deadline only
		// fires after several silent intervals.
		pongWait: 3 * heartbeatInterval,
	}
}

// ServeWS runs the handshake for one inbound connection. The credential is
// carried as a query parameter; every rejection cause maps to its own close
// code so clients can branch on it. Any failure is terminal for this attempt,
// the client alone decides whether to retry.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		g.reject(wsConn, protocol.CloseAuthRequired, "authentication required")
		return
	}

	identity, err := g.verifier.Verify(token)
	if err != nil {
		g.reject(wsConn, protocol.CloseInvalidToken, "invalid token")
		return
	}

	user, err := g.users.GetUserByID(identity.UserID)
	switch {
	case stderrors.Is(err, errors.ErrUserNotFound):
		g.reject(wsConn, protocol.CloseUserNotFound, "user not found")
		return
	case err != nil:
		g.log.Error("Store lookup failed during handshake", "user_id", identity.UserID, "err", err)
		g.reject(wsConn, protocol.CloseServerError, "server error")
		return
	}

	conn := newConnection(wsConn, user.ID, user.Username, g.sendBufferSize, g.pongWait, g.log)

	// Registration evicts any prior connection for this identity before the
	// new one becomes reachable.
	if evicted := g.registry.Register(conn); evicted != nil {
		g.log.Info("Evicted previous connection", "user_id", user.ID)
	}

	if err := g.users.SetPresence(user.ID, true, time.Time{}); err != nil {
		g.log.Error("Presence update failed", "user_id", user.ID, "err", err)
	}

	go conn.writePump()
	conn.Enqueue(protocol.ConnectionEstablished(user.ID, user.Username))
	g.broadcaster.AnnounceOnline(user.ID, user.Username)
	g.broadcaster.RefreshSnapshot()
	g.log.Info("Connection active", "user_id", user.ID, "username", user.Username)

	conn.readPump(g.maxFrameSize, func(raw []byte) {
		g.router.Route(conn, raw)
	})
	g.teardown(conn)
}

// teardown runs on every termination cause: clean close, protocol error or
// liveness eviction. Deregistration is conditional so a late close of an
// evicted connection never removes its successor, and the presence flip plus
// broadcasts only happen for the connection that actually left the registry.
func (g *Gateway) teardown(conn *Connection) {
	conn.Close(websocket.CloseNormalClosure, "")
	if !g.registry.Deregister(conn) {
		return
	}
	if err := g.users.SetPresence(conn.UserID(), false, time.Now().UTC()); err != nil {
		g.log.Error("Presence update failed", "user_id", conn.UserID(), "err", err)
	}
	g.broadcaster.AnnounceOffline(conn.UserID(), conn.Username())
	g.broadcaster.RefreshSnapshot()
	g.log.Info("Connection closed", "user_id", conn.UserID())
}

func (g *Gateway) reject(wsConn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = wsConn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	_ = wsConn.Close()
}
