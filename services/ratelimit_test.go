package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"stylistapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, now time.Time) (*RateLimiter, *time.Time) {
	store, err := NewCacheUsageStore()
	require.NoError(t, err)
	clock := now
	limiter := NewRateLimiter(store)
	limiter.Now = func() time.Time { return clock }
	return limiter, &clock
}

func freeUser(id uint) models.UserAccount {
	user := models.UserAccount{Subscription: models.Free}
	user.ID = id
	return user
}

func TestFreeTierBlocksFourthSuggestion(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	user := freeUser(1)

	for i := 0; i < 3; i++ {
		_, err := limiter.Reserve(ctx, user)
		require.NoError(t, err, "reservation %d", i+1)
	}
	_, err := limiter.Reserve(ctx, user)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	usage, err := limiter.Check(ctx, user)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, int64(3), usage.Used)
	assert.Equal(t, int64(3), usage.Limit)
	assert.Equal(t, "2025-03-10", usage.Day)
}

func TestQuotaRollsOverAtUTCMidnight(t *testing.T) {
	ctx := context.Background()
	limiter, clock := newTestLimiter(t, time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC))
	user := freeUser(2)

	for i := 0; i < 3; i++ {
		_, err := limiter.Reserve(ctx, user)
		require.NoError(t, err)
	}
	_, err := limiter.Reserve(ctx, user)
	require.ErrorIs(t, err, ErrQuotaExceeded)

	*clock = time.Date(2025, 3, 11, 0, 1, 0, 0, time.UTC)
	_, err = limiter.Reserve(ctx, user)
	assert.NoError(t, err)
}

func TestReleaseGivesSlotBackOnce(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	user := freeUser(3)

	release, err := limiter.Reserve(ctx, user)
	require.NoError(t, err)
	usage, err := limiter.Check(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage.Used)

	release()
	release()
	usage, err = limiter.Check(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.Used)
}

func TestEnforcedLimitOverridesTier(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	user := freeUser(4)
	one := int32(1)
	user.EnforcedDailySuggestionLimit = &one

	assert.Equal(t, int64(1), Limit(user))
	_, err := limiter.Reserve(ctx, user)
	require.NoError(t, err)
	_, err = limiter.Reserve(ctx, user)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestTierLimits(t *testing.T) {
	assert.Equal(t, int64(3), Limit(models.UserAccount{Subscription: models.Free}))
	assert.Equal(t, int64(30), Limit(models.UserAccount{Subscription: models.Premium}))
	assert.Equal(t, int64(100), Limit(models.UserAccount{Subscription: models.Pro}))
	assert.Equal(t, int64(3), Limit(models.UserAccount{Subscription: "platinum"}))
}

func TestConcurrentReservationsNeverExceedLimit(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	user := freeUser(5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := limiter.Reserve(ctx, user); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, granted)
}

func TestUsersDoNotShareCounters(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	for i := 0; i < 3; i++ {
		_, err := limiter.Reserve(ctx, freeUser(6))
		require.NoError(t, err)
	}
	_, err := limiter.Reserve(ctx, freeUser(7))
	assert.NoError(t, err)
}
