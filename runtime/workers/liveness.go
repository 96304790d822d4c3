package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-gateway/contract"
	"chat-gateway/protocol"
)

// LivenessWorker is the single timer that reclaims connections whose
// transport died without a clean close. Each tick walks a snapshot of the
// registry: a session that never acknowledged the previous probe is evicted
// as a disconnect; the rest are flagged unacknowledged and probed again.
// The pong handler on the connection side clears the flag.
type LivenessWorker struct {
	log      *slog.Logger
	registry contract.IRegistry
	interval time.Duration
}

func NewLivenessWorker(log *slog.Logger, registry contract.IRegistry, interval time.Duration) *LivenessWorker {
	return &LivenessWorker{log: log, registry: registry, interval: interval}
}

func (w *LivenessWorker) Run(ctx context.Context) error {
	w.log.Info("Starting liveness worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep probes every live session once. Eviction closes the connection; the
// connection's own teardown then handles deregistration and the presence
// update, exactly as for any other disconnect.
func (w *LivenessWorker) sweep() {
	for _, session := range w.registry.Sessions() {
		if session.AwaitingPong() {
			w.log.Warn("Evicting unresponsive connection", "user_id", session.UserID())
			session.Close(protocol.CloseLivenessTimeout, "liveness probe not acknowledged")
			continue
		}
		session.MarkAwaitingPong()
		if err := session.Ping(); err != nil {
			w.log.Debug("Liveness probe failed", "user_id", session.UserID(), "err", err)
		}
	}
}
