package app

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bokoth/chatrelay/internal/core"
	"github.com/bokoth/chatrelay/internal/domain"
)

// Registry is the identity to live-connections mapping. It is the only
// shared mutable state in the relay; one RWMutex guards it and no I/O
// ever happens under the lock. An identity with zero connections is
// absent from the map, so presence is a contains-key check.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.UserID]map[core.ConnID]core.ConnInfo
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[domain.UserID]map[core.ConnID]core.ConnInfo),
	}
}

// Register binds a connection to an identity. Idempotent per connection.
// Reports whether the identity just became reachable (zero to nonzero).
func (r *Registry) Register(id domain.UserID, conn core.ClientConnection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[id]
	if !ok {
		set = make(map[core.ConnID]core.ConnInfo)
		r.conns[id] = set
	}
	if _, dup := set[conn.ID()]; dup {
		return false
	}
	set[conn.ID()] = core.ConnInfo{Conn: conn, CreatedAt: time.Now()}
	log.Info().Str("module", "app.registry").Str("user", string(id)).Str("conn", string(conn.ID())).Int("conns", len(set)).Msg("registered connection")
	return len(set) == 1
}

// Unregister removes one connection binding. Reports whether the
// identity just became unreachable (nonzero to zero). Unknown
// connections are a no-op: disconnect races with a concurrent register
// must not tear down a fresh entry.
func (r *Registry) Unregister(id domain.UserID, cid core.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[id]
	if !ok {
		return false
	}
	if _, ok := set[cid]; !ok {
		return false
	}
	delete(set, cid)
	log.Info().Str("module", "app.registry").Str("user", string(id)).Str("conn", string(cid)).Int("conns", len(set)).Msg("unregistered connection")
	if len(set) == 0 {
		delete(r.conns, id)
		return true
	}
	return false
}

// Resolve returns the live connections for an identity. Empty means
// offline. The slice is a snapshot; callers may send without the lock.
func (r *Registry) Resolve(id domain.UserID) []core.ClientConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.conns[id]
	if !ok {
		return nil
	}
	out := make([]core.ClientConnection, 0, len(set))
	for _, info := range set {
		out = append(out, info.Conn)
	}
	return out
}

// Online reports whether the identity has at least one live connection.
func (r *Registry) Online(id domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

// OnlineSet returns every reachable identity, sorted for stable output.
func (r *Registry) OnlineSet() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.UserID, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllConnections snapshots every live connection across identities.
// Used for presence fan-out.
func (r *Registry) AllConnections() []core.ClientConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.ClientConnection
	for _, set := range r.conns {
		for _, info := range set {
			out = append(out, info.Conn)
		}
	}
	return out
}
