package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pulseboard/internal/config"
)

const keyDelegatedQuota = "pulseboard:quota:delegated:%s"

// DelegatedQuota limits how often one user may reach the delegated
// forecast strategy.
type DelegatedQuota struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewDelegatedQuota returns nil when the quota is disabled or Redis is
// unavailable.
func NewDelegatedQuota(cfg config.Config, client *redis.Client) (*DelegatedQuota, error) {
	q := cfg.Quota
	if !q.Enabled || client == nil {
		return nil, nil
	}
	if q.Rate <= 0 || q.Burst <= 0 {
		return nil, errors.New("delegated quota rate and burst must be positive")
	}
	return &DelegatedQuota{
		bucket: NewTokenBucket(client),
		rate:   q.Rate,
		burst:  q.Burst,
	}, nil
}

func (q *DelegatedQuota) Allow(ctx context.Context, userID string) (bool, error) {
	if q == nil {
		return true, nil
	}
	res, err := q.bucket.Allow(ctx, fmt.Sprintf(keyDelegatedQuota, strings.TrimSpace(userID)), q.rate, q.burst)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}
