package workers

import (
	"context"
	"errors"
	"time"

	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/logging"
	"summer-miles/ledger/internal/metrics"
)

// MirrorWorker drains the outbox into a MirrorSink. It never touches user locks.
type MirrorWorker struct {
	store        *repositories.Store
	sink         MirrorSink
	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
	lease        time.Duration
	now          func() time.Time
	done         chan struct{}
}

func NewMirrorWorker(store *repositories.Store, sink MirrorSink, pollInterval time.Duration, batchSize, maxAttempts int) *MirrorWorker {
	if batchSize <= 0 {
		batchSize = 25
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &MirrorWorker{
		store:        store,
		sink:         sink,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		maxAttempts:  maxAttempts,
		lease:        time.Minute,
		now:          func() time.Time { return time.Now().UTC() },
		done:         make(chan struct{}),
	}
}

// Start runs the polling loop until ctx is cancelled. Call it in a goroutine.
func (w *MirrorWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer func() {
		ticker.Stop()
		close(w.done)
	}()

	logging.Info("Mirror worker started", "sink", w.sink.Name(), "interval", w.pollInterval.String())
	for {
		if _, err := w.ProcessBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Mirror batch failed", "sink", w.sink.Name(), "error", err)
		}

		select {
		case <-ctx.Done():
			logging.Info("Mirror worker stopped", "sink", w.sink.Name())
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until Start has returned.
func (w *MirrorWorker) Wait() {
	<-w.done
}

// ProcessBatch claims one batch and delivers it, returning how many events were published.
func (w *MirrorWorker) ProcessBatch(ctx context.Context) (int, error) {
	outbox := repositories.NewOutboxRepo(w.store.DB())

	events, err := outbox.Claim(ctx, w.batchSize, w.lease, w.now())
	if err != nil {
		return 0, err
	}

	published := 0
	for _, event := range events {
		if err := w.sink.Publish(ctx, event); err != nil {
			attempts := event.Attempts + 1
			dead := attempts >= w.maxAttempts
			if markErr := outbox.MarkAttemptFailed(ctx, event.ID, attempts, err.Error(), dead, w.now()); markErr != nil {
				return published, markErr
			}
			if dead {
				metrics.OutboxDeliveriesTotal.WithLabelValues("dead").Inc()
				logging.Error("Mirror event dead-lettered", "event_id", event.ID, "attempts", attempts, "error", err)
			} else {
				metrics.OutboxDeliveriesTotal.WithLabelValues("retry").Inc()
				logging.Warn("Mirror delivery failed", "event_id", event.ID, "attempts", attempts, "error", err)
			}
			continue
		}

		if err := outbox.MarkPublished(ctx, event.ID, w.now()); err != nil {
			return published, err
		}
		metrics.OutboxDeliveriesTotal.WithLabelValues("published").Inc()
		published++
	}

	if pending, err := outbox.CountPending(ctx); err == nil {
		metrics.OutboxPending.Set(float64(pending))
	}
	return published, nil
}
