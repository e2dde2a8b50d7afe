package calendar

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const activeDatesKey = "holidays:active:v1"

// HolidayCache keeps the active-holiday set warm so day counting does not hit
// the database on every date of every range. Staleness is bounded by the TTL;
// every holiday mutation must call Invalidate.
type HolidayCache struct {
	rdb    *redis.Client
	repo   Repository
	sf     singleflight.Group
	ttl    time.Duration
	logger *zap.Logger
}

func NewHolidayCache(rdb *redis.Client, repo Repository, ttl time.Duration, logger ...*zap.Logger) *HolidayCache {
	l := zap.L().Named("calendar.cache")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("calendar.cache")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &HolidayCache{rdb: rdb, repo: repo, ttl: ttl, logger: l}
}

// ActiveDates returns the set of active holiday dates keyed by "2006-01-02".
func (c *HolidayCache) ActiveDates(ctx context.Context) (map[string]struct{}, error) {
	if c.rdb != nil {
		if cached, err := c.rdb.Get(ctx, activeDatesKey).Result(); err == nil {
			var keys []string
			if json.Unmarshal([]byte(cached), &keys) == nil {
				return toSet(keys), nil
			}
		}
	}

	v, err, _ := c.sf.Do(activeDatesKey, func() (interface{}, error) {
		dates, err := c.repo.FindActiveDates(ctx)
		if err != nil {
			return nil, err
		}

		keys := make([]string, len(dates))
		for i, d := range dates {
			keys[i] = d.Format("2006-01-02")
		}

		if c.rdb != nil {
			if jsonData, err := json.Marshal(keys); err == nil {
				c.rdb.Set(ctx, activeDatesKey, jsonData, c.ttl)
			}
		}

		return keys, nil
	})
	if err != nil {
		return nil, err
	}

	return toSet(v.([]string)), nil
}

// Invalidate drops the cached set. Called after every holiday mutation so the
// next counting pass sees the change immediately rather than at TTL expiry.
func (c *HolidayCache) Invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, activeDatesKey).Err(); err != nil {
		c.logger.Error("failed to invalidate holiday cache",
			zap.Error(err),
			zap.String("key", activeDatesKey),
		)
	}
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
