package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blocklist tracks revoked jtis in redis. Entries carry a TTL no shorter
// than the longest access-token lifetime, so a jti outlives every token
// that could present it and then expires on its own.
type Blocklist struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewBlocklist(addr string, db int, ttl time.Duration) *Blocklist {
	return NewBlocklistWithClient(redis.NewClient(&redis.Options{Addr: addr, DB: db}), ttl)
}

func NewBlocklistWithClient(rdb *redis.Client, ttl time.Duration) *Blocklist {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Blocklist{rdb: rdb, ttl: ttl}
}

// Revoke marks jti as revoked. SET with EX is idempotent: revoking twice
// leaves the same live entry as revoking once.
func (b *Blocklist) Revoke(ctx context.Context, jti string) error {
	if err := b.rdb.Set(ctx, b.key(jti), "", b.ttl).Err(); err != nil {
		return fmt.Errorf("blocklist: revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has a live entry. A store failure is
// returned as an error, never as "not revoked" — callers fail closed.
func (b *Blocklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := b.rdb.Get(ctx, b.key(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blocklist: lookup: %w", err)
	}
	return true, nil
}

func (b *Blocklist) Close() error { return b.rdb.Close() }

func (b *Blocklist) key(jti string) string { return "jti_blocklist:" + jti }
