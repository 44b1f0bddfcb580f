package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"summer-miles/ledger/internal/config"
	"summer-miles/ledger/internal/constants"
	"summer-miles/ledger/internal/db"
	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/logging"
	gormModels "summer-miles/ledger/internal/models/gorm"
	"summer-miles/ledger/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSyncer struct {
	mu       sync.Mutex
	calls    []string
	inFlight int32
	peak     int32
	syncFunc func(userID, provider string) services.SyncResult
}

func (m *mockSyncer) SyncUser(_ context.Context, userID, provider string) services.SyncResult {
	current := atomic.AddInt32(&m.inFlight, 1)
	defer atomic.AddInt32(&m.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&m.peak)
		if current <= peak || atomic.CompareAndSwapInt32(&m.peak, peak, current) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	m.mu.Lock()
	m.calls = append(m.calls, userID+"/"+provider)
	m.mu.Unlock()
	return m.syncFunc(userID, provider)
}

func setupStore(t *testing.T) *repositories.Store {
	t.Helper()
	logging.SetLogger(zap.NewNop().Sugar())
	conn, err := db.Open(config.StorageConfig{
		Driver:     config.StorageDriverSQLite,
		SQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() { _ = db.Close(conn) })
	return repositories.NewStore(conn)
}

func seedConnection(t *testing.T, store *repositories.Store, userID, provider string, status constants.ConnectionStatus) {
	t.Helper()
	require.NoError(t, store.DB().Create(&gormModels.ProviderConnection{
		ID:        uuid.NewString(),
		UserID:    userID,
		Provider:  provider,
		Status:    status,
		ExpiresAt: time.Now().Add(time.Hour),
	}).Error)
}

func TestScheduledSyncJob_SkipsRevokedAndBoundsConcurrency(t *testing.T) {
	store := setupStore(t)
	for _, user := range []string{"u1", "u2", "u3", "u4", "u5"} {
		seedConnection(t, store, user, "strava", constants.ConnectionActive)
	}
	seedConnection(t, store, "u6", "strava", constants.ConnectionExpired)
	seedConnection(t, store, "u7", "strava", constants.ConnectionRevoked)

	syncer := &mockSyncer{syncFunc: func(userID, _ string) services.SyncResult {
		if userID == "u6" {
			return services.SyncResult{Status: constants.SyncRateLimited}
		}
		return services.SyncResult{Status: constants.SyncSuccess, Added: 2}
	}}
	job := NewScheduledSyncJob(store, syncer, 2)

	report, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, report.Connections)
	assert.Equal(t, 5, report.ByStatus[constants.SyncSuccess])
	assert.Equal(t, 1, report.ByStatus[constants.SyncRateLimited])
	assert.Equal(t, 10, report.Added)
	assert.NotContains(t, syncer.calls, "u7/strava")
	assert.LessOrEqual(t, atomic.LoadInt32(&syncer.peak), int32(2))
	assert.Same(t, report, job.LastReport())
}

func TestInitializeJobs_ZeroIntervalDoesNotSchedule(t *testing.T) {
	store := setupStore(t)
	seedConnection(t, store, "u1", "strava", constants.ConnectionActive)
	syncer := &mockSyncer{syncFunc: func(string, string) services.SyncResult {
		return services.SyncResult{Status: constants.SyncSuccess}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	job := InitializeJobs(ctx, store, syncer, 0, 2)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, syncer.calls)
	assert.Nil(t, job.LastReport())
}
