package workers

import (
	"context"
	"fmt"

	"summer-miles/ledger/internal/config"
	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/logging"

	"github.com/redis/go-redis/v9"
)

type WorkersContainer struct {
	Mirror *MirrorWorker
	sink   MirrorSink
}

// NewMirrorSink builds the sink named by cfg.
func NewMirrorSink(cfg config.MirrorConfig, redisClient *redis.Client) (MirrorSink, error) {
	switch cfg.Sink {
	case config.MirrorSinkRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("mirror sink redis requires a redis client")
		}
		return NewRedisStreamSink(redisClient, cfg.Stream), nil
	case config.MirrorSinkKafka:
		return NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return nil, fmt.Errorf("unknown mirror sink %q", cfg.Sink)
	}
}

// InitWorkers starts the background workers enabled by cfg.
func InitWorkers(ctx context.Context, cfg config.MirrorConfig, store *repositories.Store, redisClient *redis.Client) (*WorkersContainer, error) {
	container := &WorkersContainer{}
	if !cfg.Enabled {
		logging.Info("Mirror worker disabled")
		return container, nil
	}

	sink, err := NewMirrorSink(cfg, redisClient)
	if err != nil {
		return nil, err
	}
	container.sink = sink
	container.Mirror = NewMirrorWorker(store, sink, cfg.PollInterval, cfg.BatchSize, cfg.MaxAttempts)
	go container.Mirror.Start(ctx)

	return container, nil
}

// Shutdown waits for running workers after their context is cancelled and closes the sink.
func (c *WorkersContainer) Shutdown() error {
	if c.Mirror != nil {
		c.Mirror.Wait()
	}
	if c.sink != nil {
		return c.sink.Close()
	}
	return nil
}
