package cache

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/pulseboard/internal/clock"
	forecastdomain "github.com/smallbiznis/pulseboard/internal/forecast/domain"
)

const BackendMemory = "memory"

// MemoryForecastCache keeps forecast results in process.
type MemoryForecastCache struct {
	entries *TTLCache[string, forecastdomain.ForecastResult]
}

func NewMemoryForecastCache(c clock.Clock) *MemoryForecastCache {
	return &MemoryForecastCache{
		entries: NewTTLCache[string, forecastdomain.ForecastResult](c),
	}
}

func (c *MemoryForecastCache) Backend() string { return BackendMemory }

func (c *MemoryForecastCache) Get(_ context.Context, key forecastdomain.CacheKey) (forecastdomain.ForecastResult, bool, error) {
	result, ok := c.entries.Get(key.String())
	return result, ok, nil
}

func (c *MemoryForecastCache) Set(_ context.Context, key forecastdomain.CacheKey, result forecastdomain.ForecastResult, ttl time.Duration) error {
	c.entries.Set(key.String(), result, ttl)
	return nil
}

func (c *MemoryForecastCache) Delete(_ context.Context, key forecastdomain.CacheKey) error {
	c.entries.Delete(key.String())
	return nil
}

func (c *MemoryForecastCache) InvalidateUser(_ context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	c.entries.DeleteFunc(func(_ string, result forecastdomain.ForecastResult) bool {
		return result.UserID == userID
	})
	return nil
}
