package redis

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease implements usecase.Lease with SET NX. Only the holder that acquired a key can release it.
type Lease struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewLease creates a new Lease.
func NewLease(client *redis.Client) *Lease {
	return &Lease{
		client: client,
		prefix: "boxoffice:lease:",
		tokens: make(map[string]string),
	}
}

// Acquire takes key for ttl. It reports false when another holder has it.
func (l *Lease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := ulid.Make().String()

	ok, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil || !ok {
		return false, err
	}

	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()

	return true, nil
}

// Release frees key if this instance still holds it.
func (l *Lease) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()

	if !ok {
		return nil
	}

	return releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Err()
}
