package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stylistapi/models"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const usageTTL = 24 * time.Hour

// UsageStore keeps advisory daily counters. IncrementWithCeiling must be atomic:
// it increments only while the stored value is below ceiling and reports whether it did.
type UsageStore interface {
	IncrementWithCeiling(ctx context.Context, key string, ceiling int64, ttl time.Duration) (int64, bool, error)
	Decrement(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (int64, error)
}

type RateLimiter struct {
	Store UsageStore
	Now   func() time.Time
}

func NewRateLimiter(store UsageStore) *RateLimiter {
	return &RateLimiter{Store: store, Now: time.Now}
}

type Usage struct {
	Used  int64  `json:"used"`
	Limit int64  `json:"limit"`
	Day   string `json:"day"`
}

func (r *RateLimiter) day() string {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return now().UTC().Format("2006-01-02")
}

func (r *RateLimiter) key(user models.UserAccount) string {
	return fmt.Sprintf("usage:suggestions:%d:%s:%s", user.ID, user.Subscription.Normalized(), r.day())
}

// Limit is the user's daily allowance, honoring a per-user override.
func Limit(user models.UserAccount) int64 {
	if user.EnforcedDailySuggestionLimit != nil {
		return int64(*user.EnforcedDailySuggestionLimit)
	}
	return user.Subscription.Normalized().DailySuggestionLimit()
}

// Check is the read-only pre-flight used for quota display. It does not reserve anything.
func (r *RateLimiter) Check(ctx context.Context, user models.UserAccount) (Usage, error) {
	used, err := r.Store.Get(ctx, r.key(user))
	if err != nil {
		return Usage{}, err
	}
	usage := Usage{Used: used, Limit: Limit(user), Day: r.day()}
	if used >= usage.Limit {
		return usage, ErrQuotaExceeded
	}
	return usage, nil
}

// Reserve takes one slot of today's quota in a single atomic step.
// The returned release func gives the slot back and must be called when generation fails.
func (r *RateLimiter) Reserve(ctx context.Context, user models.UserAccount) (func(), error) {
	key := r.key(user)
	limit := Limit(user)
	count, ok, err := r.Store.IncrementWithCeiling(ctx, key, limit, usageTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "used": count, "limit": limit}).Info("daily suggestion quota reached")
		return nil, ErrQuotaExceeded
	}
	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := r.Store.Decrement(context.Background(), key); err != nil {
				logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to release quota slot")
			}
		})
	}
	return release, nil
}

// CacheUsageStore keeps counters in an in-process ristretto cache.
// Increments are serialized by a mutex; the cache has no compare-and-set.
type CacheUsageStore struct {
	mu        sync.Mutex
	cache     *cache.Cache[int64]
	ristretto *ristretto.Cache
}

func NewCacheUsageStore() (*CacheUsageStore, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)
	return &CacheUsageStore{
		cache:     cache.New[int64](ristrettoStore),
		ristretto: ristrettoCache,
	}, nil
}

// get treats a miss as zero; the ristretto store only errors when the key is absent.
func (s *CacheUsageStore) get(ctx context.Context, key string) int64 {
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return 0
	}
	return value
}

func (s *CacheUsageStore) set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if err := s.cache.Set(ctx, key, value, store.WithExpiration(ttl), store.WithCost(1)); err != nil {
		return err
	}
	// ristretto applies writes asynchronously
	s.ristretto.Wait()
	return nil
}

func (s *CacheUsageStore) IncrementWithCeiling(ctx context.Context, key string, ceiling int64, ttl time.Duration) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.get(ctx, key)
	if current >= ceiling {
		return current, false, nil
	}
	current++
	if err := s.set(ctx, key, current, ttl); err != nil {
		return current - 1, false, err
	}
	return current, true, nil
}

func (s *CacheUsageStore) Decrement(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.get(ctx, key)
	if current <= 0 {
		return nil
	}
	return s.set(ctx, key, current-1, usageTTL)
}

func (s *CacheUsageStore) Get(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(ctx, key), nil
}

var incrementWithCeilingScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
	return {current, 0}
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return {current, 1}
`)

var decrementFloorScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current <= 0 then
	return 0
end
return redis.call('DECR', KEYS[1])
`)

// RedisUsageStore shares counters between api replicas. Both operations run as Lua scripts.
type RedisUsageStore struct {
	Client redis.UniversalClient
}

func NewRedisUsageStore(addr string) *RedisUsageStore {
	return &RedisUsageStore{Client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (s *RedisUsageStore) IncrementWithCeiling(ctx context.Context, key string, ceiling int64, ttl time.Duration) (int64, bool, error) {
	values, err := incrementWithCeilingScript.Run(ctx, s.Client, []string{key}, ceiling, int64(ttl.Seconds())).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("usage increment: %w", err)
	}
	if len(values) != 2 {
		return 0, false, fmt.Errorf("usage increment: unexpected reply %v", values)
	}
	return values[0], values[1] == 1, nil
}

func (s *RedisUsageStore) Decrement(ctx context.Context, key string) error {
	return decrementFloorScript.Run(ctx, s.Client, []string{key}).Err()
}

func (s *RedisUsageStore) Get(ctx context.Context, key string) (int64, error) {
	value, err := s.Client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return value, err
}
