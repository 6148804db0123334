package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingMarker is stored under a key while its first request is still running.
const PendingMarker = "processing"

const defaultIdempotencyTTL = 24 * time.Hour

// claimScript returns the stored value, or claims the key and returns nil.
var claimScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if existing then
	return existing
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return false
`)

// IdempotencyStore keeps Idempotency-Key claims and the responses they produced.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "boxoffice:idempotency:",
	}
}

// CheckAndSet claims key for the caller in one round trip. When the key is already
// claimed it returns true and whatever is stored, which is PendingMarker while the
// first request runs.
func (s *IdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	value := []byte(PendingMarker)
	if response != nil {
		value = response
	}

	existing, err := claimScript.Run(ctx, s.client, []string{s.prefix + key}, value, ttlMillis(ttl)).Text()
	if errors.Is(err, redis.Nil) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}

	return true, []byte(existing), nil
}

// Update replaces the pending claim with the final response.
func (s *IdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return s.client.Set(ctx, s.prefix+key, response, ttl).Err()
}

// Release drops a claim so a failed request can be retried with the same key.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func ttlMillis(ttl time.Duration) int64 {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return ttl.Milliseconds()
}
