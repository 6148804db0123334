package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPingTimeout = 5 * time.Second

type clientOptions struct {
	name        string
	pingTimeout time.Duration
}

// Option tunes NewClient.
type Option func(*clientOptions)

// WithClientName sets the name reported by CLIENT LIST.
func WithClientName(name string) Option {
	return func(o *clientOptions) { o.name = name }
}

// WithPingTimeout bounds the startup health check.
func WithPingTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.pingTimeout = d }
}

// NewClient connects to Redis and verifies the connection.
// addr is either a redis:// URL or a bare host:port.
func NewClient(ctx context.Context, addr string, opts ...Option) (*redis.Client, error) {
	o := clientOptions{pingTimeout: defaultPingTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	redisOpts, err := parseAddr(addr)
	if err != nil {
		return nil, err
	}
	if o.name != "" {
		redisOpts.ClientName = o.name
	}

	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, o.pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", redisOpts.Addr, err)
	}

	return client, nil
}

func parseAddr(addr string) (*redis.Options, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}

	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return opts, nil
}
