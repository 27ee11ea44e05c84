package portal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"portalgate/pkg/metrics"
)

const cachePrefix = "portal:appinfo:"

type cachedLookup struct {
	next Lookup
	rdb  *redis.Client
	ttl  time.Duration
	log  *zap.SugaredLogger
}

// NewCachedLookup remembers successful app.info answers in Redis, keyed by
// a hash of the AUTH_ID. It returns next unchanged when rdb is nil or ttl
// is not positive. Redis errors fall through to next; failures are never
// cached.
func NewCachedLookup(next Lookup, rdb *redis.Client, ttl time.Duration, log *zap.SugaredLogger) Lookup {
	if rdb == nil || ttl <= 0 {
		return next
	}
	return &cachedLookup{next: next, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(authID string) string {
	sum := sha256.Sum256([]byte(authID))
	return cachePrefix + hex.EncodeToString(sum[:])
}

func (c *cachedLookup) AppInfo(ctx context.Context, authID string) (Install, error) {
	start := time.Now()
	key := cacheKey(authID)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var inst Install
		if jerr := json.Unmarshal(raw, &inst); jerr == nil {
			metrics.ObservePortalLookup("cached", time.Since(start))
			return inst, nil
		}
		c.log.Debugw("dropping unreadable app.info cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.log.Debugw("app.info cache read failed", "err", err)
	}

	inst, err := c.next.AppInfo(ctx, authID)
	if err != nil {
		return Install{}, err
	}
	if b, jerr := json.Marshal(inst); jerr == nil {
		if serr := c.rdb.Set(ctx, key, b, c.ttl).Err(); serr != nil {
			c.log.Debugw("app.info cache write failed", "err", serr)
		}
	}
	return inst, nil
}
