package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2025, 7, 10, 15, 0, 0, 0, time.UTC)
}

func TestSimulatedProvider_IsDeterministic(t *testing.T) {
	p := NewSimulatedProvider("strava", 3, 0).WithClock(fixedClock)

	first, err := p.FetchActivities(context.Background(), "u1", time.Time{})
	require.NoError(t, err)
	second, err := p.FetchActivities(context.Background(), "u1", time.Time{})
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, "u1-2025-07-08", first[0].ExternalActivityID)
	assert.Equal(t, "u1-2025-07-10", first[2].ExternalActivityID)

	for _, a := range first {
		assert.GreaterOrEqual(t, a.DistanceMiles, 1.0)
		assert.Less(t, a.DistanceMiles, 6.0)
	}
}

func TestSimulatedProvider_DiffersPerUser(t *testing.T) {
	p := NewSimulatedProvider("strava", 1, 0).WithClock(fixedClock)

	a, err := p.FetchActivities(context.Background(), "alice", time.Time{})
	require.NoError(t, err)
	b, err := p.FetchActivities(context.Background(), "bob", time.Time{})
	require.NoError(t, err)

	assert.NotEqual(t, a[0].ExternalActivityID, b[0].ExternalActivityID)
}

func TestSimulatedProvider_RespectsSince(t *testing.T) {
	p := NewSimulatedProvider("garmin", 5, 0).WithClock(fixedClock)

	got, err := p.FetchActivities(context.Background(), "u1", time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1-2025-07-10", got[0].ExternalActivityID)
}

func TestSimulatedProvider_LimiterHonoursContext(t *testing.T) {
	p := NewSimulatedProvider("fitbit", 1, 0.001).WithClock(fixedClock)

	_, err := p.FetchActivities(context.Background(), "u1", time.Time{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.FetchActivities(ctx, "u1", time.Time{})

	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "RATE_LIMITED", providerErr.Code)
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(NewSimulatedProvider("strava", 1, 0), NewSimulatedProvider("garmin", 1, 0))

	_, ok := r.Get("strava")
	assert.True(t, ok)
	_, ok = r.Get("polar")
	assert.False(t, ok)
	assert.Equal(t, []string{"garmin", "strava"}, r.Names())
}
