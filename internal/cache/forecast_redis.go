package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang/snappy"
	redis "github.com/redis/go-redis/v9"
	forecastdomain "github.com/smallbiznis/pulseboard/internal/forecast/domain"
)

const (
	BackendRedis = "redis"

	redisKeyPrefix = "pulseboard:forecast"
)

// KEYS[1] entry, KEYS[2] user index; ARGV payload, entry ttl (ms), index ttl (ms).
// The index ttl is only ever extended so it covers the longest-lived entry.
const setEntryScript = `
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
redis.call("SADD", KEYS[2], KEYS[1])
local want = tonumber(ARGV[3])
if redis.call("PTTL", KEYS[2]) < want then
  redis.call("PEXPIRE", KEYS[2], want)
end
return 1
`

// RedisForecastCache stores snappy-compressed JSON results with SET EX and
// tracks each user's keys in a set so they can be dropped together.
type RedisForecastCache struct {
	client redis.UniversalClient
	setter *redis.Script
}

func NewRedisForecastCache(client redis.UniversalClient) *RedisForecastCache {
	return &RedisForecastCache{
		client: client,
		setter: redis.NewScript(setEntryScript),
	}
}

func (c *RedisForecastCache) Backend() string { return BackendRedis }

func (c *RedisForecastCache) Get(ctx context.Context, key forecastdomain.CacheKey) (forecastdomain.ForecastResult, bool, error) {
	raw, err := c.client.Get(ctx, resultKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return forecastdomain.ForecastResult{}, false, nil
	}
	if err != nil {
		return forecastdomain.ForecastResult{}, false, err
	}

	decoded, err := snappy.Decode(nil, raw)
	if err != nil {
		return forecastdomain.ForecastResult{}, false, err
	}
	var result forecastdomain.ForecastResult
	if err := json.Unmarshal(decoded, &result); err != nil {
		return forecastdomain.ForecastResult{}, false, err
	}
	return result, true, nil
}

func (c *RedisForecastCache) Set(ctx context.Context, key forecastdomain.CacheKey, result forecastdomain.ForecastResult, ttl time.Duration) error {
	if ttl <= 0 {
		return c.Delete(ctx, key)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	// the index outlives every entry it lists; stale members are harmless
	return c.setter.Run(ctx, c.client,
		[]string{resultKey(key), userIndexKey(key.UserID)},
		snappy.Encode(nil, payload), ttl.Milliseconds(), (2 * ttl).Milliseconds(),
	).Err()
}

func (c *RedisForecastCache) Delete(ctx context.Context, key forecastdomain.CacheKey) error {
	k := resultKey(key)
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, k)
	pipe.SRem(ctx, userIndexKey(key.UserID), k)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisForecastCache) InvalidateUser(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	idx := userIndexKey(userID)
	keys, err := c.client.SMembers(ctx, idx).Result()
	if err != nil {
		return err
	}
	keys = append(keys, idx)
	return c.client.Del(ctx, keys...).Err()
}

func resultKey(key forecastdomain.CacheKey) string {
	return cacheKey(redisKeyPrefix, key.String())
}

func userIndexKey(userID string) string {
	return cacheKey(redisKeyPrefix, "user", userID)
}
