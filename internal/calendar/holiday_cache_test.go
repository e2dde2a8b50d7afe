package calendar_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"

	"github.com/pixelotes/Tempus/internal/calendar"
)

const activeDatesKey = "holidays:active:v1"

func TestHolidayCache_ActiveDates(t *testing.T) {
	ctx := context.Background()

	t.Run("miss loads from repository and fills the cache", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		repoCalls := 0
		repo := &fakeHolidayRepository{
			findActiveDatesFn: func(ctx context.Context) ([]time.Time, error) {
				repoCalls++
				return []time.Time{date("2026-01-01"), date("2026-12-25")}, nil
			},
		}
		cache := calendar.NewHolidayCache(rdb, repo, time.Hour)

		payload, _ := json.Marshal([]string{"2026-01-01", "2026-12-25"})
		mock.ExpectGet(activeDatesKey).RedisNil()
		mock.ExpectSet(activeDatesKey, payload, time.Hour).SetVal("OK")

		got, err := cache.ActiveDates(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 1, repoCalls)
		assert.Contains(t, got, "2026-01-01")
		assert.Contains(t, got, "2026-12-25")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hit skips the repository", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		repo := &fakeHolidayRepository{
			findActiveDatesFn: func(ctx context.Context) ([]time.Time, error) {
				t.Fatal("repository should not be hit on a cache hit")
				return nil, nil
			},
		}
		cache := calendar.NewHolidayCache(rdb, repo, time.Hour)

		payload, _ := json.Marshal([]string{"2026-05-01"})
		mock.ExpectGet(activeDatesKey).SetVal(string(payload))

		got, err := cache.ActiveDates(ctx)

		assert.NoError(t, err)
		assert.Contains(t, got, "2026-05-01")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil client goes straight to the repository", func(t *testing.T) {
		repo := &fakeHolidayRepository{
			findActiveDatesFn: func(ctx context.Context) ([]time.Time, error) {
				return []time.Time{date("2026-05-01")}, nil
			},
		}
		cache := calendar.NewHolidayCache(nil, repo, time.Hour)

		got, err := cache.ActiveDates(ctx)

		assert.NoError(t, err)
		assert.Contains(t, got, "2026-05-01")
	})
}

func TestHolidayCache_Invalidate(t *testing.T) {
	ctx := context.Background()

	rdb, mock := redismock.NewClientMock()
	cache := calendar.NewHolidayCache(rdb, &fakeHolidayRepository{}, time.Hour)

	mock.ExpectDel(activeDatesKey).SetVal(1)

	cache.Invalidate(ctx)

	assert.NoError(t, mock.ExpectationsWereMet())
}
