package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-weather-service/internal/domain"
	"github.com/couchcryptid/city-weather-service/internal/observability"
)

type countingProvider struct {
	calls int
	stats domain.Stats
	err   error
}

func (p *countingProvider) Stats(context.Context, int, int) (domain.Stats, error) {
	p.calls++
	return p.stats, p.err
}

func TestCachedStats_HitWithinTTL(t *testing.T) {
	provider := &countingProvider{stats: domain.Stats{Days: 7}}
	fakeClock := clockwork.NewFakeClock()
	cache := NewCachedStats(provider, time.Minute, fakeClock, observability.NewMetricsForTesting())

	first, err := cache.Stats(context.Background(), 1, 7)
	require.NoError(t, err)

	fakeClock.Advance(30 * time.Second)
	second, err := cache.Stats(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls)
}

func TestCachedStats_RecomputesAfterExpiry(t *testing.T) {
	provider := &countingProvider{stats: domain.Stats{Days: 7}}
	fakeClock := clockwork.NewFakeClock()
	cache := NewCachedStats(provider, time.Minute, fakeClock, observability.NewMetricsForTesting())

	_, err := cache.Stats(context.Background(), 1, 7)
	require.NoError(t, err)

	fakeClock.Advance(time.Minute)
	_, err = cache.Stats(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
}

func TestCachedStats_KeyedByCityAndWindow(t *testing.T) {
	provider := &countingProvider{}
	cache := NewCachedStats(provider, time.Minute, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	ctx := context.Background()
	_, _ = cache.Stats(ctx, 1, 7)
	_, _ = cache.Stats(ctx, 2, 7)
	_, _ = cache.Stats(ctx, 1, 30)
	_, _ = cache.Stats(ctx, 2, 7)

	assert.Equal(t, 3, provider.calls)
}

func TestCachedStats_EquivalentWindowsShareEntry(t *testing.T) {
	provider := &countingProvider{}
	cache := NewCachedStats(provider, time.Minute, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	// Zero and negative windows clamp to the default before keying.
	_, _ = cache.Stats(context.Background(), 1, 0)
	_, _ = cache.Stats(context.Background(), 1, DefaultWindowDays)

	assert.Equal(t, 1, provider.calls)
}

func TestCachedStats_ConcurrentReaders(t *testing.T) {
	provider := &countingProvider{stats: domain.Stats{Days: 7}}
	cache := NewCachedStats(provider, time.Minute, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	// Prime the entry, then hammer it from many goroutines.
	_, err := cache.Stats(context.Background(), 1, 7)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				stats, err := cache.Stats(context.Background(), 1, 7)
				assert.NoError(t, err)
				assert.Equal(t, 7, stats.Days)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, provider.calls)
}

func TestCachedStats_ErrorsNotCached(t *testing.T) {
	provider := &countingProvider{err: errors.New("schema missing")}
	cache := NewCachedStats(provider, time.Minute, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	_, err := cache.Stats(context.Background(), 1, 7)
	require.Error(t, err)

	provider.err = nil
	_, err = cache.Stats(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
}
