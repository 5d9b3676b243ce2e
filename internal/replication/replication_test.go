package replication

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestTransport(t *testing.T) (*RedisTransport, func()) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	transport := NewRedisTransport(client, "zonemesh-test-group", "consumer-1")
	transport.blockTime = 200 * time.Millisecond

	return transport, func() {
		client.Close()
		server.Close()
	}
}

func TestPublishThenSubscribeDeliversDelta(t *testing.T) {
	transport, cleanup := newTestTransport(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	want := Delta{Zone: "z:work", Kind: "revocation_head", Key: "node:a", Payload: []byte("x"), Actor: "node:a", Timestamp: 1}
	require.NoError(t, transport.Publish(ctx, want))

	var got Delta
	var mu sync.Mutex
	delivered := make(chan struct{}, 1)

	subCtx, subCancel := context.WithCancel(ctx)
	defer subCancel()

	go func() {
		_ = transport.Subscribe(subCtx, "z:work", func(d Delta) error {
			mu.Lock()
			got = d
			mu.Unlock()
			select {
			case delivered <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("delta was not delivered in time")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want.Zone, got.Zone)
	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.Key, got.Key)
	assert.Equal(t, want.Payload, got.Payload)
}

func TestSubscribeRedeliversUnackedDeltaOnHandlerError(t *testing.T) {
	transport, cleanup := newTestTransport(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	require.NoError(t, transport.Publish(ctx, Delta{Zone: "z:work", Kind: "usage_counter", Key: "k"}))

	var attempts int
	var mu sync.Mutex
	done := make(chan struct{})

	subCtx, subCancel := context.WithCancel(ctx)
	defer subCancel()

	go func() {
		_ = transport.Subscribe(subCtx, "z:work", func(d Delta) error {
			mu.Lock()
			attempts++
			n := attempts
			mu.Unlock()
			if n == 1 {
				return assert.AnError // leave unacked, forcing redelivery
			}
			close(done)
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("delta was never redelivered after handler error")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestPublishRespectsRateLimit(t *testing.T) {
	transport, cleanup := newTestTransport(t)
	defer cleanup()
	transport.WithPublishLimit(rate.Limit(1), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	d := Delta{Zone: "z:work", Kind: "usage_counter", Key: "k"}
	require.NoError(t, transport.Publish(context.Background(), d))

	err := transport.Publish(ctx, d)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
