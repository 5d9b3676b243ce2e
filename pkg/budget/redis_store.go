package budget

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// windowUsageScript atomically rolls and increments a zone/metric window
// counter in one round trip, matching the same roll-then-add semantics as
// MetricWindow.roll/RecordUsage but safe across concurrent nodes sharing
// one Redis instance.
//
// KEYS[1] = window hash key ("budget:<zone>:<metric>")
// ARGV[1] = window_seconds (configured)
// ARGV[2] = delta to add (saturating, capped at 2^53-1 to stay within a
//           Lua double's exact-integer range)
// ARGV[3] = current unix time in seconds
var windowUsageScript = redis.NewScript(`
local key = KEYS[1]
local window_seconds = tonumber(ARGV[1])
local delta = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", key, "used", "window_seconds", "window_started")
local used = tonumber(state[1])
local stored_window = tonumber(state[2])
local started = tonumber(state[3])

if not used or not stored_window or not started or stored_window ~= window_seconds or (now - started) >= window_seconds then
    used = 0
    started = now
end

used = used + delta
local max_exact = 9007199254740991
if used > max_exact then
    used = max_exact
end

redis.call("HMSET", key, "used", used, "window_seconds", window_seconds, "window_started", started)
redis.call("EXPIRE", key, window_seconds * 2)

return {used, started}
`)

// RedisWindowStore is a Redis-backed MetricWindow source, letting the
// budget engine's rolling windows be shared across nodes instead of held
// only in one process's memory.
type RedisWindowStore struct {
	client *redis.Client
}

// NewRedisWindowStore wraps an existing Redis client.
func NewRedisWindowStore(client *redis.Client) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

func windowKey(zone string, metric Metric) string {
	return fmt.Sprintf("budget:%s:%s", zone, metric)
}

// Apply rolls and increments the (zone, metric) window in Redis and
// returns the resulting Entry, matching the same classification logic as
// the in-memory Engine.
func (s *RedisWindowStore) Apply(ctx context.Context, zone string, cfg BudgetConfig, delta uint64, nowSeconds uint64) (Entry, error) {
	res, err := windowUsageScript.Run(ctx, s.client, []string{windowKey(zone, cfg.Metric)},
		cfg.WindowSeconds, delta, nowSeconds).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("budget: redis window apply: %w", err)
	}
	results, ok := res.([]interface{})
	if !ok || len(results) != 2 {
		return Entry{}, fmt.Errorf("budget: unexpected redis window response shape")
	}
	used, err := parseRedisInt(results[0])
	if err != nil {
		return Entry{}, fmt.Errorf("budget: parse used: %w", err)
	}

	classification := ClassificationOk
	if used > cfg.Limit {
		classification = ClassificationExceeded
	}
	return Entry{
		Metric:         cfg.Metric,
		Used:           used,
		Limit:          cfg.Limit,
		WindowSeconds:  cfg.WindowSeconds,
		Classification: classification,
	}, nil
}

func parseRedisInt(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case int64:
		return uint64(n), nil
	case string:
		parsed, err := strconv.ParseUint(n, 10, 64)
		return parsed, err
	default:
		return 0, fmt.Errorf("unexpected redis numeric type %T", v)
	}
}
