package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"summer-miles/ledger/internal/config"
	"summer-miles/ledger/internal/db"
	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/logging"
	gormModels "summer-miles/ledger/internal/models/gorm"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type fakeSink struct {
	mu          sync.Mutex
	publishFunc func(event gormModels.OutboxEvent) error
	published   []uint64
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Publish(_ context.Context, event gormModels.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishFunc != nil {
		if err := f.publishFunc(event); err != nil {
			return err
		}
	}
	f.published = append(f.published, event.ID)
	return nil
}

func (f *fakeSink) Close() error { return nil }

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

func enqueue(t *testing.T, store *repositories.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, repositories.NewOutboxRepo(store.DB()).Enqueue(context.Background(), &gormModels.OutboxEvent{
			UserID:      "alice",
			AggregateID: "strava:run",
			EventType:   "activity.upserted",
			Payload:     datatypes.JSON(`{"id":"strava:run"}`),
		}))
	}
}

func TestMirrorWorker_PublishesInOrderAndMarks(t *testing.T) {
	store := setupStore(t)
	enqueue(t, store, 3)
	sink := &fakeSink{}
	worker := NewMirrorWorker(store, sink, time.Second, 2, 3)

	n, err := worker.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = worker.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = worker.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, []uint64{1, 2, 3}, sink.published)
	pending, err := repositories.NewOutboxRepo(store.DB()).CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestMirrorWorker_RetriesThenDeadLetters(t *testing.T) {
	store := setupStore(t)
	enqueue(t, store, 1)
	sink := &fakeSink{publishFunc: func(gormModels.OutboxEvent) error { return errors.New("broker unavailable") }}
	worker := NewMirrorWorker(store, sink, time.Second, 10, 2)

	_, err := worker.ProcessBatch(context.Background())
	require.NoError(t, err)

	var event gormModels.OutboxEvent
	require.NoError(t, store.DB().First(&event).Error)
	assert.Equal(t, 1, event.Attempts)
	require.NotNil(t, event.LastError)
	assert.Equal(t, "broker unavailable", *event.LastError)
	assert.Nil(t, event.FailedAt)
	assert.Nil(t, event.ClaimedAt)

	_, err = worker.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.DB().First(&event).Error)
	assert.Equal(t, 2, event.Attempts)
	assert.NotNil(t, event.FailedAt)

	sink.publishFunc = nil
	n, err := worker.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "dead-lettered events are never retried")
}

func TestMirrorWorker_ReclaimsAbandonedClaims(t *testing.T) {
	store := setupStore(t)
	enqueue(t, store, 1)
	outbox := repositories.NewOutboxRepo(store.DB())

	now := time.Now().UTC()
	claimed, err := outbox.Claim(context.Background(), 10, time.Minute, now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	again, err := outbox.Claim(context.Background(), 10, time.Minute, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Empty(t, again)

	later, err := outbox.Claim(context.Background(), 10, time.Minute, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Len(t, later, 1)
}

func TestMirrorWorker_StartStopsOnCancel(t *testing.T) {
	store := setupStore(t)
	enqueue(t, store, 1)
	sink := &fakeSink{}
	worker := NewMirrorWorker(store, sink, 10*time.Millisecond, 10, 3)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Start(ctx)
	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.published) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	worker.Wait()
}

type fakeWriter struct {
	messages []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaSink_KeysByUser(t *testing.T) {
	writer := &fakeWriter{}
	sink := &KafkaSink{writer: writer}

	err := sink.Publish(context.Background(), gormModels.OutboxEvent{
		ID:        7,
		UserID:    "alice",
		EventType: "activity.upserted",
		Payload:   datatypes.JSON(`{"miles":3}`),
	})
	require.NoError(t, err)

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "alice", string(msg.Key))
	assert.JSONEq(t, `{"miles":3}`, string(msg.Value))
	assert.Contains(t, msg.Headers, kafka.Header{Key: "event_id", Value: []byte("7")})
}

func TestNewMirrorSink(t *testing.T) {
	_, err := NewMirrorSink(config.MirrorConfig{Sink: config.MirrorSinkRedis}, nil)
	assert.Error(t, err)

	sink, err := NewMirrorSink(config.MirrorConfig{Sink: config.MirrorSinkKafka, KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "kafka", sink.Name())

	_, err = NewMirrorSink(config.MirrorConfig{Sink: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}
