// Package store is the durability boundary. The router only ever sees
// these interfaces, so its logic is testable without a real database.
package store

import (
	"context"

	"github.com/bokoth/chatrelay/internal/domain"
)

// MessageStore persists one message record per send. Save is synchronous
// and attempted exactly once by the caller; retry policy, if any, belongs
// behind this interface, never in the router.
type MessageStore interface {
	Save(ctx context.Context, msg *domain.Message) error

	// Messages lists a receiver's stored messages oldest-first. This is
	// the history extension point; the relay itself only writes.
	Messages(ctx context.Context, receiver domain.UserID, limit int) ([]*domain.Message, error)
}

// UserDirectory maps an opaque identity to its display name. The account
// system that assigns identities lives outside this service.
type UserDirectory interface {
	Lookup(ctx context.Context, id domain.UserID) (string, error)
	Upsert(ctx context.Context, id domain.UserID, username string) error
}
