package replication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RedisTransport implements Transport over a Redis stream per zone
// ("replication:<zone>"), using a consumer group so delivery survives a
// subscriber restart: unacknowledged entries are redelivered on next read,
// giving the required at-least-once guarantee without blocking publishers.
type RedisTransport struct {
	client    *redis.Client
	group     string
	consumer  string
	blockTime time.Duration
	limiter   *rate.Limiter // nil means unlimited
}

// NewRedisTransport wraps client. group identifies this deployment's
// consumer group (e.g. "node-pool"); consumer identifies this process
// within the group.
func NewRedisTransport(client *redis.Client, group, consumer string) *RedisTransport {
	return &RedisTransport{client: client, group: group, consumer: consumer, blockTime: 5 * time.Second}
}

// WithPublishLimit caps the rate at which Publish admits new deltas to r
// events per second with burst b, protecting the stream from a runaway
// writer. It returns t for chaining.
func (t *RedisTransport) WithPublishLimit(r rate.Limit, b int) *RedisTransport {
	t.limiter = rate.NewLimiter(r, b)
	return t
}

func streamKey(zone string) string { return "replication:" + zone }

// Publish appends d to its zone's stream. XADD never blocks on a reader
// being present, matching the contract's "never blocks a writer" rule.
func (t *RedisTransport) Publish(ctx context.Context, d Delta) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("replication: publish rate limit: %w", err)
		}
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("replication: marshal delta: %w", err)
	}
	_, err = t.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(d.Zone),
		Values: map[string]interface{}{"delta": payload},
	}).Result()
	if err != nil {
		return fmt.Errorf("replication: publish delta: %w", err)
	}
	return nil
}

// Subscribe reads zone's stream as part of t's consumer group, invoking
// handler for each delta and XACKing only on success, until ctx is
// cancelled or the read loop fails. Each pass first retries this
// consumer's own still-pending (previously delivered, never acked) entries
// before reading new ones, so a handler error does not strand a delta
// forever — that retry is what makes delivery at-least-once rather than
// at-most-once.
func (t *RedisTransport) Subscribe(ctx context.Context, zone string, handler func(Delta) error) error {
	key := streamKey(zone)
	if err := t.ensureGroup(ctx, key); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.readAndHandle(ctx, key, "0", 0, handler); err != nil {
			return err
		}

		if err := t.readAndHandle(ctx, key, ">", t.blockTime, handler); err != nil {
			return err
		}
	}
}

// readAndHandle issues one XReadGroup call starting at id (">" for new
// entries, "0" to re-read this consumer's own pending entries) and invokes
// handler for each, ACKing only on success.
func (t *RedisTransport) readAndHandle(ctx context.Context, key, id string, block time.Duration, handler func(Delta) error) error {
	streams, err := t.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    t.group,
		Consumer: t.consumer,
		Streams:  []string{key, id},
		Count:    64,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("replication: read group: %w", err)
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			raw, ok := msg.Values["delta"].(string)
			if !ok {
				continue
			}
			var d Delta
			if err := json.Unmarshal([]byte(raw), &d); err != nil {
				continue
			}
			if err := handler(d); err != nil {
				continue // leave unacked: retried on this consumer's next pending pass
			}
			if err := t.client.XAck(ctx, key, t.group, msg.ID).Err(); err != nil {
				return fmt.Errorf("replication: ack delta: %w", err)
			}
		}
	}
	return nil
}

func (t *RedisTransport) ensureGroup(ctx context.Context, key string) error {
	err := t.client.XGroupCreateMkStream(ctx, key, t.group, "0").Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		// BUSYGROUP means the group already exists, which is the expected
		// steady-state case once the first subscriber has run.
		if !isBusyGroupErr(err) {
			return fmt.Errorf("replication: ensure consumer group: %w", err)
		}
	}
	return nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}
