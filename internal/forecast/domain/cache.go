package domain

import (
	"context"
	"strings"
	"time"
)

// CacheKey identifies a cached forecast by user, horizon and basis window.
type CacheKey struct {
	UserID     string
	Horizon    string
	BasisStart time.Time
	BasisEnd   time.Time
}

// String renders the key. User IDs keep their case.
func (k CacheKey) String() string {
	return strings.Join([]string{
		strings.TrimSpace(k.UserID),
		strings.ToLower(strings.TrimSpace(k.Horizon)),
		k.BasisStart.UTC().Format("2006-01-02"),
		k.BasisEnd.UTC().Format("2006-01-02"),
	}, "|")
}

type ResultCache interface {
	Get(ctx context.Context, key CacheKey) (ForecastResult, bool, error)
	Set(ctx context.Context, key CacheKey, result ForecastResult, ttl time.Duration) error
	Delete(ctx context.Context, key CacheKey) error
	InvalidateUser(ctx context.Context, userID string) error
	Backend() string
}

// Locker provides cross-instance mutual exclusion for recomputes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}
