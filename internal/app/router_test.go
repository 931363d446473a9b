package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bokoth/chatrelay/internal/core"
	"github.com/bokoth/chatrelay/internal/domain"
)

type routerFixture struct {
	registry *Registry
	store    *fakeStore
	router   *MessageRouter
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	registry := NewRegistry()
	st := &fakeStore{}
	dir := fakeDirectory{"alice": "Alice", "bob": "Bob"}
	return &routerFixture{
		registry: registry,
		store:    st,
		router:   NewMessageRouter(registry, st, dir, time.Second),
	}
}

func TestRouter_DeliversToReceiverAndEchoesSender(t *testing.T) {
	fx := newRouterFixture(t)
	aliceConn := newFakeConn("a1")
	bobConn := newFakeConn("b1")
	fx.registry.Register("alice", aliceConn)
	fx.registry.Register("bob", bobConn)

	err := fx.router.Send(context.Background(), "alice", SendRequest{Receiver: "bob", Text: "hi"})
	require.NoError(t, err)

	require.Equal(t, 1, fx.store.count(), "exactly one persisted record")
	saved := fx.store.saved[0]
	assert.Equal(t, domain.UserID("alice"), saved.Sender)
	assert.Equal(t, domain.UserID("bob"), saved.Receiver)
	assert.Equal(t, "hi", saved.Text)
	assert.Equal(t, domain.KindText, saved.Kind)
	assert.False(t, saved.CreatedAt.IsZero(), "timestamp is server-assigned")

	got := bobConn.eventsOfType(t, core.EvReceiveMessage)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0]["sender_id"])
	assert.Equal(t, "Alice", got[0]["sender_username"])
	assert.Equal(t, "hi", got[0]["message"])

	echo := aliceConn.eventsOfType(t, core.EvReceiveMessage)
	require.Len(t, echo, 1, "sender gets the canonical echo")
	assert.Equal(t, got[0]["timestamp"], echo[0]["timestamp"], "echo carries the same server state")
}

func TestRouter_FansOutToEveryReceiverConnection(t *testing.T) {
	fx := newRouterFixture(t)
	tab1 := newFakeConn("b1")
	tab2 := newFakeConn("b2")
	fx.registry.Register("bob", tab1)
	fx.registry.Register("bob", tab2)

	require.NoError(t, fx.router.Send(context.Background(), "alice", SendRequest{Receiver: "bob", Text: "hi"}))

	assert.Len(t, tab1.eventsOfType(t, core.EvReceiveMessage), 1)
	assert.Len(t, tab2.eventsOfType(t, core.EvReceiveMessage), 1)
}

func TestRouter_OfflineReceiverIsNotAnError(t *testing.T) {
	fx := newRouterFixture(t)
	aliceConn := newFakeConn("a1")
	fx.registry.Register("alice", aliceConn)

	err := fx.router.Send(context.Background(), "alice", SendRequest{Receiver: "carol", Text: "hi"})
	require.NoError(t, err, "offline delivery is out of scope, not a failure")

	assert.Equal(t, 1, fx.store.count(), "message still persisted")
	assert.Len(t, aliceConn.eventsOfType(t, core.EvReceiveMessage), 1, "sender still gets the echo")
}

func TestRouter_PersistFailureSuppressesAllDelivery(t *testing.T) {
	fx := newRouterFixture(t)
	fx.store.err = errors.New("disk on fire")
	aliceConn := newFakeConn("a1")
	bobConn := newFakeConn("b1")
	fx.registry.Register("alice", aliceConn)
	fx.registry.Register("bob", bobConn)

	err := fx.router.Send(context.Background(), "alice", SendRequest{Receiver: "bob", Text: "hi"})
	require.ErrorIs(t, err, core.ErrDeliveryFailed)

	assert.Equal(t, 0, fx.store.count())
	assert.Equal(t, 0, bobConn.count(), "no delivery of an unpersisted message")
	assert.Equal(t, 0, aliceConn.count(), "no echo either")
}

func TestRouter_PersistTimeout(t *testing.T) {
	registry := NewRegistry()
	st := &fakeStore{block: true}
	router := NewMessageRouter(registry, st, fakeDirectory{}, 20*time.Millisecond)
	bobConn := newFakeConn("b1")
	registry.Register("bob", bobConn)

	err := router.Send(context.Background(), "alice", SendRequest{Receiver: "bob", Text: "hi"})
	require.ErrorIs(t, err, core.ErrDeliveryFailed, "a stuck store must not hold the handler")
	assert.Equal(t, 0, bobConn.count())
}

func TestRouter_Validation(t *testing.T) {
	fx := newRouterFixture(t)

	err := fx.router.Send(context.Background(), "", SendRequest{Receiver: "bob", Text: "hi"})
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	err = fx.router.Send(context.Background(), "alice", SendRequest{Text: "hi"})
	assert.ErrorIs(t, err, core.ErrInvalidPayload, "missing receiver")

	err = fx.router.Send(context.Background(), "alice", SendRequest{Receiver: "bob"})
	assert.ErrorIs(t, err, core.ErrInvalidPayload, "empty body and media")

	assert.Equal(t, 0, fx.store.count(), "nothing persisted for rejected sends")
}

func TestRouter_MediaMessage(t *testing.T) {
	fx := newRouterFixture(t)
	bobConn := newFakeConn("b1")
	fx.registry.Register("bob", bobConn)

	err := fx.router.Send(context.Background(), "alice", SendRequest{
		Receiver: "bob",
		MediaURL: "/uploads/abc.png",
		Kind:     domain.KindImage,
	})
	require.NoError(t, err, "media-only body is valid")

	got := bobConn.eventsOfType(t, core.EvReceiveMessage)
	require.Len(t, got, 1)
	assert.Equal(t, "/uploads/abc.png", got[0]["media_url"])
	assert.Equal(t, "image", got[0]["message_type"])
}
