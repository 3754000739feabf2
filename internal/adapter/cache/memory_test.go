package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange-rate-facade/internal/domain/model"
	"exchange-rate-facade/pkg/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestMemoryCache_GetPut(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour, logger.Discard())
	pair := model.NewPair(model.USD, model.EUR)

	_, found := c.Get(ctx, pair)
	assert.False(t, found)

	require.NoError(t, c.Put(ctx, pair, 0.85))
	rate, found := c.Get(ctx, pair)
	require.True(t, found)
	assert.Equal(t, 0.85, rate)

	_, found = c.Get(ctx, model.NewPair(model.EUR, model.USD))
	assert.False(t, found)

	require.NoError(t, c.Put(ctx, pair, 0.9))
	rate, _ = c.Get(ctx, pair)
	assert.Equal(t, 0.9, rate)
}

func TestMemoryCache_SeparatorInCodes(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour, logger.Discard())

	require.NoError(t, c.Put(ctx, model.NewPair("A_B", "C"), 2))

	_, found := c.Get(ctx, model.NewPair("A", "B_C"))
	assert.False(t, found)

	rate, found := c.Get(ctx, model.NewPair("A_B", "C"))
	require.True(t, found)
	assert.Equal(t, 2.0, rate)
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, "3:USD_EUR", pairKey(model.NewPair(model.USD, model.EUR)))
	assert.NotEqual(t, pairKey(model.NewPair("A_B", "C")), pairKey(model.NewPair("A", "B_C")))
	assert.NotEqual(t, pairKey(model.NewPair("1:A", "B")), pairKey(model.NewPair("1", "A_B")))
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache(time.Hour, logger.Discard(), WithClock(clock.Now))
	pair := model.NewPair(model.USD, model.GBP)

	require.NoError(t, c.Put(ctx, pair, 0.79))

	clock.Advance(59 * time.Minute)
	rate, found := c.Get(ctx, pair)
	require.True(t, found)
	assert.Equal(t, 0.79, rate)

	clock.Advance(time.Minute)
	_, found = c.Get(ctx, pair)
	assert.False(t, found)
	assert.Equal(t, 0, c.Len(), "expired entry is evicted on read")

	require.NoError(t, c.Put(ctx, pair, 0.8))
	rate, found = c.Get(ctx, pair)
	require.True(t, found)
	assert.Equal(t, 0.8, rate)
}

func TestMemoryCache_DefaultTTL(t *testing.T) {
	c := NewMemoryCache(0, logger.Discard())
	assert.Equal(t, 3600*time.Second, c.cacheTTL)
}

func TestMemoryCache_ClearExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache(10*time.Minute, logger.Discard(), WithClock(clock.Now))

	require.NoError(t, c.Put(ctx, model.NewPair(model.USD, model.EUR), 0.85))
	clock.Advance(6 * time.Minute)
	require.NoError(t, c.Put(ctx, model.NewPair(model.USD, model.JPY), 150))
	clock.Advance(5 * time.Minute)

	require.NoError(t, c.ClearExpired(ctx))
	assert.Equal(t, 1, c.Len())

	_, found := c.Get(ctx, model.NewPair(model.USD, model.JPY))
	assert.True(t, found)
}

func TestMemoryCache_Flush(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour, logger.Discard())

	require.NoError(t, c.Put(ctx, model.NewPair(model.USD, model.EUR), 0.85))
	require.NoError(t, c.Put(ctx, model.NewPair(model.USD, model.CAD), 1.25))
	require.NoError(t, c.Flush(ctx))

	assert.Equal(t, 0, c.Len())
	_, found := c.Get(ctx, model.NewPair(model.USD, model.EUR))
	assert.False(t, found)
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour, logger.Discard())
	pair := model.NewPair(model.USD, model.INR)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(2)
		go func(v float64) {
			defer wg.Done()
			_ = c.Put(ctx, pair, v)
		}(float64(i))
		go func() {
			defer wg.Done()
			_, _ = c.Get(ctx, pair)
		}()
	}
	wg.Wait()

	rate, found := c.Get(ctx, pair)
	require.True(t, found)
	assert.GreaterOrEqual(t, rate, 1.0)
	assert.LessOrEqual(t, rate, 100.0)
	assert.Equal(t, 1, c.Len())
}
