package services

import (
	"context"
	"testing"
	"time"

	"summer-miles/ledger/internal/constants"
	gormModels "summer-miles/ledger/internal/models/gorm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConnectionDetails_CreatesActiveConnection(t *testing.T) {
	env := newTestEnv(t)

	details, err := env.connections.GetConnectionDetails(context.Background(), "alice", "strava")
	require.NoError(t, err)

	assert.Equal(t, constants.ConnectionActive, details.Status)
	assert.True(t, details.ExpiresAt.Equal(env.clock.Now().Add(6*time.Hour)))
	assert.Nil(t, details.LastRefreshAt)
}

func TestGetConnectionDetails_LazyExpiryDoesNotWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.connections.GetConnectionDetails(ctx, "alice", "strava")
	require.NoError(t, err)
	env.clock.Advance(7 * time.Hour)

	details, err := env.connections.GetConnectionDetails(ctx, "alice", "strava")
	require.NoError(t, err)
	assert.Equal(t, constants.ConnectionExpired, details.Status)

	var stored gormModels.ProviderConnection
	require.NoError(t, env.db.Where("user_id = ? AND provider = ?", "alice", "strava").Take(&stored).Error)
	assert.Equal(t, constants.ConnectionActive, stored.Status)
}

func TestRefreshSimulatedToken_ExtendsExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.connections.SimulateBreak(ctx, "alice", "strava", constants.BreakExpired)
	require.NoError(t, err)

	details, err := env.connections.RefreshSimulatedToken(ctx, "alice", "strava")
	require.NoError(t, err)
	assert.Equal(t, constants.ConnectionActive, details.Status)
	assert.True(t, details.ExpiresAt.After(env.clock.Now()))
	require.NotNil(t, details.LastRefreshAt)
	assert.True(t, details.LastRefreshAt.Equal(env.clock.Now()))
}

func TestRefreshSimulatedToken_FailsDuringOutage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.connections.SetConditions(ctx, ProviderConditions{Provider: "strava", Outage: true})
	require.NoError(t, err)

	_, err = env.connections.RefreshSimulatedToken(ctx, "alice", "strava")
	assert.ErrorIs(t, err, ErrProviderOutage)
}

func TestSimulateBreak_RevokedIsTerminalUntilReconnect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	details, err := env.connections.SimulateBreak(ctx, "alice", "strava", constants.BreakRevoked)
	require.NoError(t, err)
	assert.Equal(t, constants.ConnectionRevoked, details.Status)

	_, err = env.connections.RefreshSimulatedToken(ctx, "alice", "strava")
	assert.ErrorIs(t, err, ErrConnectionRevoked)

	details, err = env.connections.Reconnect(ctx, "alice", "strava")
	require.NoError(t, err)
	assert.Equal(t, constants.ConnectionActive, details.Status)
}

func TestSimulateBreak_RejectsUnknownMode(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.connections.SimulateBreak(context.Background(), "alice", "strava", constants.BreakMode("melted"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConnections_UnsupportedProvider(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.connections.GetConnectionDetails(ctx, "alice", "myspace")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
	_, err = env.connections.SetConditions(ctx, ProviderConditions{Provider: "myspace", Outage: true})
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestConditions_DefaultToClearAndRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cond, err := env.connections.GetConditions(ctx, "strava")
	require.NoError(t, err)
	assert.Equal(t, ProviderConditions{Provider: "strava"}, cond)

	_, err = env.connections.SetConditions(ctx, ProviderConditions{Provider: "strava", Delay: true, RateLimit: true})
	require.NoError(t, err)
	cond, err = env.connections.GetConditions(ctx, "strava")
	require.NoError(t, err)
	assert.True(t, cond.Delay)
	assert.True(t, cond.RateLimit)
	assert.False(t, cond.Outage)
}
