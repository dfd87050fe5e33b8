package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/pulseboard/internal/assistant/domain"
	"github.com/smallbiznis/pulseboard/internal/cache"
	"github.com/smallbiznis/pulseboard/internal/clock"
)

// SnapshotCache holds per-user assistant snapshots. It is registered as a
// daily metric invalidator on its own so the store never depends on the
// assistant service.
type SnapshotCache struct {
	entries *cache.TTLCache[string, domain.Snapshot]
}

func NewSnapshotCache(c clock.Clock) *SnapshotCache {
	return &SnapshotCache{entries: cache.NewTTLCache[string, domain.Snapshot](c)}
}

func (c *SnapshotCache) InvalidateUser(_ context.Context, userID string) error {
	c.entries.Delete(strings.TrimSpace(userID))
	return nil
}
