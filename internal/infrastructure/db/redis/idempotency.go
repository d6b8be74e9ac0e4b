package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eventbooker/event-booker/internal/core/domain"
)

const (
	idempotencyTTL = 24 * time.Hour
	// claimTTL bounds how long a crashed request can hold a key.
	claimTTL = time.Minute

	pendingMarker = "pending"
)

// abandonScript deletes a key only while it still holds the pending marker.
var abandonScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IdempotencyStore remembers which booking an Idempotency-Key produced.
// Key format: booking:idem:<user_id>:<key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore creates an IdempotencyStore wrapping the given Redis client.
// A ttl <= 0 selects idempotencyTTL.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Claim sets the key to a pending marker if it is free. Otherwise it returns
// the stored booking id, or "" while the holder has not completed.
func (s *IdempotencyStore) Claim(ctx context.Context, userID, key string) (string, bool, error) {
	k := s.key(userID, key)
	ok, err := s.client.SetNX(ctx, k, pendingMarker, claimTTL).Result()
	if err != nil {
		return "", false, domain.Transient("idempotency claim", err)
	}
	if ok {
		return "", true, nil
	}

	id, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, domain.Transient("idempotency lookup", err)
	}
	if id == pendingMarker {
		return "", false, nil
	}
	return id, false, nil
}

// Complete replaces the pending marker with bookingID for the full TTL.
func (s *IdempotencyStore) Complete(ctx context.Context, userID, key, bookingID string) error {
	if err := s.client.Set(ctx, s.key(userID, key), bookingID, s.ttl).Err(); err != nil {
		return domain.Transient("idempotency complete", err)
	}
	return nil
}

// Abandon frees a key still marked pending. A completed key is left alone.
func (s *IdempotencyStore) Abandon(ctx context.Context, userID, key string) error {
	if err := abandonScript.Run(ctx, s.client, []string{s.key(userID, key)}, pendingMarker).Err(); err != nil {
		return domain.Transient("idempotency abandon", err)
	}
	return nil
}

func (s *IdempotencyStore) key(userID, key string) string {
	return fmt.Sprintf("booking:idem:%s:%s", userID, key)
}
