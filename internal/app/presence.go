package app

import (
	"github.com/rs/zerolog/log"

	"github.com/bokoth/chatrelay/internal/core"
	"github.com/bokoth/chatrelay/internal/domain"
	"github.com/bokoth/chatrelay/internal/metrics"
)

// Presence broadcasts reachability transitions to everyone connected.
// Pure side effect; it holds no state of its own. Delivery is
// best-effort: a slow listener drops the update, nothing more.
type Presence struct {
	registry *Registry
}

func NewPresence(registry *Registry) *Presence {
	return &Presence{registry: registry}
}

func (p *Presence) Publish(id domain.UserID, online bool) {
	status := core.StatusOffline
	if online {
		status = core.StatusOnline
	}
	frame := core.Encode(core.StatusEvent{
		Type:   core.EvUserStatusUpdate,
		UserID: id,
		Status: status,
	})
	dropped := 0
	for _, conn := range p.registry.AllConnections() {
		if err := conn.TrySend(frame); err != nil {
			dropped++
		}
	}
	metrics.PresenceBroadcasts.Inc()
	log.Info().Str("module", "app.presence").Str("user", string(id)).Str("status", status).Int("dropped", dropped).Msg("status broadcast")
}

// Snapshot builds the full online set event for a newly accepted
// connection, so a late joiner learns who is already here.
func (p *Presence) Snapshot() core.Frame {
	return core.Encode(core.PresenceStateEvent{
		Type:   core.EvPresenceState,
		Online: p.registry.OnlineSet(),
	})
}
