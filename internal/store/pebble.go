package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog/log"

	"github.com/bokoth/chatrelay/internal/domain"
)

// Pebble backs both the message store and the user directory with a
// single local Pebble database. Message keys carry a sortable timestamp
// prefix so a plain prefix scan yields insertion order.
type Pebble struct {
	db *pebble.DB

	// seq breaks ties when two messages land on the same nanosecond.
	seq uint64
}

func OpenPebble(path string) (*Pebble, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	log.Info().Str("module", "store.pebble").Str("path", path).Msg("opened message store")
	return &Pebble{db: db}, nil
}

func (p *Pebble) Close() error {
	return p.db.Close()
}

// msgKey format: msg:<receiver>:<unix_nano_padded>-<seq>
func (p *Pebble) msgKey(receiver domain.UserID, ts time.Time) []byte {
	s := atomic.AddUint64(&p.seq, 1)
	return []byte(fmt.Sprintf("msg:%s:%020d-%06d", receiver, ts.UnixNano(), s))
}

func userKey(id domain.UserID) []byte {
	return []byte("user:" + string(id))
}

func (p *Pebble) Save(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	key := p.msgKey(msg.Receiver, msg.CreatedAt)
	if err := p.db.Set(key, data, pebble.Sync); err != nil {
		log.Error().Err(err).Str("module", "store.pebble").Str("key", string(key)).Msg("save message failed")
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

func (p *Pebble) Messages(ctx context.Context, receiver domain.UserID, limit int) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte("msg:" + string(receiver) + ":")
	upper := append(append([]byte{}, prefix...), 0xff)
	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("message iterator: %w", err)
	}
	defer func() { _ = iter.Close() }()

	var out []*domain.Message
	for iter.First(); iter.Valid(); iter.Next() {
		var m domain.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			log.Warn().Err(err).Str("module", "store.pebble").Str("key", string(iter.Key())).Msg("skipping undecodable record")
			continue
		}
		out = append(out, &m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (p *Pebble) Lookup(ctx context.Context, id domain.UserID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	val, closer, err := p.db.Get(userKey(id))
	if err == pebble.ErrNotFound {
		// Unknown identities are not an error; the caller just gets no name.
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	defer func() { _ = closer.Close() }()
	var u domain.User
	if err := json.Unmarshal(val, &u); err != nil {
		return "", fmt.Errorf("decode user: %w", err)
	}
	return u.Username, nil
}

func (p *Pebble) Upsert(ctx context.Context, id domain.UserID, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u, err := domain.NewUser(id, username)
	if err != nil {
		return err
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := p.db.Set(userKey(id), data, pebble.Sync); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
