// Package core holds the transport-facing contracts shared by the relay
// components and the adapters.
package core

import "time"

// Frame is one encoded event ready for the wire.
type Frame []byte

// ConnID identifies one live transport session, unique per accepted
// connection. A user connected from two tabs holds two ConnIDs.
type ConnID string

// ClientConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it. TrySend must never
// block: a full send buffer is a backpressure error, not a stall.
type ClientConnection interface {
	ID() ConnID
	TrySend(Frame) error
	Close()
}

// ConnInfo is the registry's view of a connection: the handle plus the
// moment it was accepted.
type ConnInfo struct {
	Conn      ClientConnection
	CreatedAt time.Time
}
