package core

import "errors"

var (
	// ErrBackpressure means a connection's send buffer is full; the
	// frame was dropped for that connection only.
	ErrBackpressure = errors.New("backpressure")

	// ErrUnauthenticated means the originating connection has no bound
	// identity. Surfaced as a generic error event, never with detail.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrInvalidPayload means a send request is malformed; nothing was
	// persisted.
	ErrInvalidPayload = errors.New("invalid message data")

	// ErrDeliveryFailed means the durable write did not complete; the
	// message was not delivered to anyone.
	ErrDeliveryFailed = errors.New("failed to send message")

	// ErrTargetUnreachable means a signaling target has no live
	// connection. Reported to the sender only.
	ErrTargetUnreachable = errors.New("target not reachable")
)
