package app

import (
	"github.com/rs/zerolog/log"

	"github.com/bokoth/chatrelay/internal/core"
	"github.com/bokoth/chatrelay/internal/domain"
	"github.com/bokoth/chatrelay/internal/metrics"
)

// Relay bundles the core components behind the two lifecycle hooks the
// transport adapter calls. Everything is injected; no package globals.
type Relay struct {
	Registry *Registry
	Presence *Presence
	Router   *MessageRouter
	Signals  *SignalRelay
}

func NewRelay(registry *Registry, presence *Presence, router *MessageRouter, signals *SignalRelay) *Relay {
	return &Relay{
		Registry: registry,
		Presence: presence,
		Router:   router,
		Signals:  signals,
	}
}

// Connect binds an authenticated identity to a freshly accepted
// connection. The new connection first receives the online snapshot
// (peers only, it is not registered yet), then the registry transition
// is broadcast if this was the identity's first connection.
func (r *Relay) Connect(id domain.UserID, conn core.ClientConnection) {
	if err := conn.TrySend(r.Presence.Snapshot()); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("user", string(id)).Msg("snapshot not delivered")
	}
	first := r.Registry.Register(id, conn)
	metrics.ActiveConnections.Inc()
	if first {
		r.Presence.Publish(id, true)
	}
}

// Disconnect tears down one connection binding. Must run synchronously
// on every disconnect path before the transport handler returns, so no
// closed connection stays resolvable.
func (r *Relay) Disconnect(id domain.UserID, cid core.ConnID) {
	last := r.Registry.Unregister(id, cid)
	metrics.ActiveConnections.Dec()
	if last {
		r.Presence.Publish(id, false)
	}
}
