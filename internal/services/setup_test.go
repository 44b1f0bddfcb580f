package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/config"
	"summer-miles/ledger/internal/db"
	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/logging"
	"summer-miles/ledger/internal/providers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// mockProvider lets tests script FetchActivities.
type mockProvider struct {
	name      string
	fetchFunc func(ctx context.Context, userID string, since time.Time) ([]providers.FetchedActivity, error)
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) FetchActivities(ctx context.Context, userID string, since time.Time) ([]providers.FetchedActivity, error) {
	return m.fetchFunc(ctx, userID, since)
}

type testEnv struct {
	db          *gorm.DB
	store       *repositories.Store
	clock       *fakeClock
	aggregation *AggregationService
	ingestion   *IngestionService
	corrections *CorrectionService
	undo        *UndoService
	connections *ConnectionService
	sync        *SyncService
	userData    *UserDataService
	query       *QueryService
}

// setupTestDB opens a private shared-cache memory database so every connection sees the same data.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logging.SetLogger(zap.NewNop().Sugar())

	conn, err := db.Open(config.StorageConfig{
		Driver:     config.StorageDriverSQLite,
		SQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() { _ = db.Close(conn) })
	return conn
}

type envOption func(*envSettings)

type envSettings struct {
	mirror    bool
	providers []providers.ActivityProvider
	delay     time.Duration
	timeout   time.Duration
}

func withMirror() envOption {
	return func(s *envSettings) { s.mirror = true }
}

func withProviders(p ...providers.ActivityProvider) envOption {
	return func(s *envSettings) { s.providers = append(s.providers, p...) }
}

func withSyncTimings(delay, timeout time.Duration) envOption {
	return func(s *envSettings) { s.delay, s.timeout = delay, timeout }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	conn := setupTestDB(t)
	clock := newFakeClock()

	settings := envSettings{delay: 5 * time.Millisecond, timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&settings)
	}
	if len(settings.providers) == 0 {
		settings.providers = []providers.ActivityProvider{
			providers.NewSimulatedProvider("strava", 3, 0).WithClock(clock.Now),
		}
	}

	sqlReader, err := db.NewReader(conn, config.StorageConfig{Driver: config.StorageDriverSQLite})
	require.NoError(t, err)

	store := repositories.NewStore(conn)
	locks := common.NewUserLocks()
	registry := providers.NewRegistry(settings.providers...)

	aggregation := NewAggregationService(store, locks)
	ingestion := NewIngestionService(store, aggregation, locks, settings.mirror).WithClock(clock.Now)
	connections := NewConnectionService(store, registry, 6*time.Hour).WithClock(clock.Now)

	return &testEnv{
		db:          conn,
		store:       store,
		clock:       clock,
		aggregation: aggregation,
		ingestion:   ingestion,
		corrections: NewCorrectionService(store, aggregation, locks).WithClock(clock.Now),
		undo:        NewUndoService(store, aggregation, locks, 60*time.Second).WithClock(clock.Now),
		connections: connections,
		sync: NewSyncService(store, connections, ingestion, registry, SyncOptions{
			Delay:        settings.delay,
			Timeout:      settings.timeout,
			LookbackDays: 3,
		}).WithClock(clock.Now),
		userData: NewUserDataService(store, aggregation, locks),
		query:    NewQueryService(store, repositories.NewTimelineReader(sqlReader), common.NewCacheService(time.Minute, time.Minute), time.Minute).WithClock(clock.Now),
	}
}

func activityAt(provider, externalID string, ts time.Time, miles float64) ActivityInput {
	return ActivityInput{
		Provider:           provider,
		ExternalActivityID: externalID,
		Timestamp:          ts,
		DistanceMiles:      miles,
		DurationMin:        miles * 10,
	}
}

func (e *testEnv) totalMiles(t *testing.T, userID string) float64 {
	t.Helper()
	agg, err := e.query.Aggregate(context.Background(), userID)
	require.NoError(t, err)
	return agg.TotalMiles
}
