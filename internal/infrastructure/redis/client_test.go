package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)

	tests := []struct {
		name string
		addr string
	}{
		{name: "url", addr: "redis://" + s.Addr()},
		{name: "bare address", addr: s.Addr()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tt.addr)
			require.NoError(t, err)
			defer client.Close()

			require.NoError(t, client.Set(context.Background(), "idem:k", "v", time.Minute).Err())
			assert.True(t, s.Exists("idem:k"))
		})
	}
}

func TestOptions(t *testing.T) {
	o := clientOptions{pingTimeout: defaultPingTimeout}
	WithClientName("boxoffice")(&o)
	WithPingTimeout(time.Second)(&o)

	assert.Equal(t, "boxoffice", o.name)
	assert.Equal(t, time.Second, o.pingTimeout)
}

func TestNewClientRejectsBadAddress(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	assert.Error(t, err)

	_, err = NewClient(context.Background(), "redis://:bad:port/x")
	assert.Error(t, err)
}

func TestNewClientPingFailure(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	_, err := NewClient(context.Background(), addr, WithPingTimeout(500*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
}
