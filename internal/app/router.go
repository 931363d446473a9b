package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bokoth/chatrelay/internal/core"
	"github.com/bokoth/chatrelay/internal/domain"
	"github.com/bokoth/chatrelay/internal/metrics"
	"github.com/bokoth/chatrelay/internal/store"
)

// SendRequest is the validated intent to deliver one message. The sender
// is never taken from the payload; the adapter fills it from the
// identity bound to the originating connection.
type SendRequest struct {
	Receiver domain.UserID
	Text     string
	MediaURL string
	Kind     domain.MessageKind
}

// MessageRouter persists and delivers point-to-point messages.
// Persist-before-deliver is the one ordering invariant here: a message
// no one can find again after a restart must never have been seen.
type MessageRouter struct {
	registry       *Registry
	messages       store.MessageStore
	directory      store.UserDirectory
	persistTimeout time.Duration
}

func NewMessageRouter(registry *Registry, messages store.MessageStore, directory store.UserDirectory, persistTimeout time.Duration) *MessageRouter {
	if persistTimeout <= 0 {
		persistTimeout = 5 * time.Second
	}
	return &MessageRouter{
		registry:       registry,
		messages:       messages,
		directory:      directory,
		persistTimeout: persistTimeout,
	}
}

// Send validates, persists, then delivers. An offline receiver is not an
// error; a failed persist is, and it suppresses all delivery including
// the sender echo.
func (r *MessageRouter) Send(ctx context.Context, sender domain.UserID, req SendRequest) error {
	if sender == "" {
		return core.ErrUnauthenticated
	}
	if req.Receiver == "" || (req.Text == "" && req.MediaURL == "") {
		metrics.MessagesRouted.WithLabelValues("invalid").Inc()
		return core.ErrInvalidPayload
	}

	msg := domain.NewMessage(sender, req.Receiver, req.Text, req.MediaURL, req.Kind)

	persistCtx, cancel := context.WithTimeout(ctx, r.persistTimeout)
	defer cancel()
	started := time.Now()
	if err := r.messages.Save(persistCtx, msg); err != nil {
		metrics.MessagesRouted.WithLabelValues("persist_failed").Inc()
		log.Error().Err(err).Str("module", "app.router").Str("sender", string(sender)).Str("receiver", string(req.Receiver)).Msg("persist failed")
		return fmt.Errorf("%w: %v", core.ErrDeliveryFailed, err)
	}
	metrics.PersistSeconds.Observe(time.Since(started).Seconds())

	frame := core.Encode(r.event(ctx, msg))

	delivered := r.fanOut(req.Receiver, frame)
	if delivered == 0 {
		metrics.MessagesRouted.WithLabelValues("receiver_offline").Inc()
		log.Info().Str("module", "app.router").Str("receiver", string(req.Receiver)).Msg("receiver offline, message stored only")
	} else {
		metrics.MessagesRouted.WithLabelValues("delivered").Inc()
	}

	// Echo to every sender connection so optimistic client state can
	// reconcile against the canonical record.
	r.fanOut(sender, frame)
	return nil
}

func (r *MessageRouter) fanOut(id domain.UserID, frame core.Frame) int {
	sent := 0
	for _, conn := range r.registry.Resolve(id) {
		if err := conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.router").Str("user", string(id)).Str("conn", string(conn.ID())).Msg("dropped delivery")
			continue
		}
		sent++
	}
	return sent
}

func (r *MessageRouter) event(ctx context.Context, msg *domain.Message) core.MessageEvent {
	name, err := r.directory.Lookup(ctx, msg.Sender)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("sender", string(msg.Sender)).Msg("directory lookup failed")
	}
	return core.MessageEvent{
		Type:           core.EvReceiveMessage,
		SenderID:       msg.Sender,
		SenderUsername: name,
		ReceiverID:     msg.Receiver,
		Text:           msg.Text,
		MediaURL:       msg.MediaURL,
		Kind:           msg.Kind,
		Timestamp:      msg.CreatedAt.Format(time.RFC3339Nano),
	}
}
