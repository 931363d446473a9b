package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bokoth/chatrelay/internal/core"
	"github.com/bokoth/chatrelay/internal/domain"
)

// fakeConn records every frame it is handed.
type fakeConn struct {
	id   core.ConnID
	fail bool

	mu     sync.Mutex
	frames []core.Frame
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: core.ConnID(id)}
}

func (f *fakeConn) ID() core.ConnID { return f.id }

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return core.ErrBackpressure
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// events decodes every recorded frame into a generic map.
func (f *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(fr, &m))
		out = append(out, m)
	}
	return out
}

// eventsOfType filters decoded frames by their type tag.
func (f *fakeConn) eventsOfType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ev := range f.events(t) {
		if ev["type"] == typ {
			out = append(out, ev)
		}
	}
	return out
}

// fakeStore counts saves and can be told to fail or block.
type fakeStore struct {
	mu    sync.Mutex
	saved []*domain.Message
	err   error
	block bool
}

func (s *fakeStore) Save(ctx context.Context, msg *domain.Message) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, msg)
	return nil
}

func (s *fakeStore) Messages(ctx context.Context, receiver domain.UserID, limit int) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Message
	for _, m := range s.saved {
		if m.Receiver == receiver {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

// fakeDirectory is a static id to name map.
type fakeDirectory map[domain.UserID]string

func (d fakeDirectory) Lookup(ctx context.Context, id domain.UserID) (string, error) {
	return d[id], nil
}

func (d fakeDirectory) Upsert(ctx context.Context, id domain.UserID, username string) error {
	d[id] = username
	return nil
}
