package api

import (
	"time"

	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/config"
	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/jobs"
	"summer-miles/ledger/internal/providers"
	"summer-miles/ledger/internal/services"

	"github.com/jmoiron/sqlx"
)

type Services struct {
	Ingestion   *services.IngestionService
	Corrections *services.CorrectionService
	Undo        *services.UndoService
	Connections *services.ConnectionService
	Sync        *services.SyncService
	UserData    *services.UserDataService
	Query       *services.QueryService
}

type Dependencies struct {
	Store    *repositories.Store
	Services *Services
	SyncJob  *jobs.ScheduledSyncJob
	UpSince  time.Time
}

// InitDependencies wires every service around one store and one set of user locks.
func InitDependencies(cfg config.Config, store *repositories.Store, reader *sqlx.DB, cache common.CacheInterface, registry *providers.Registry) *Dependencies {
	locks := common.NewUserLocks()

	aggregation := services.NewAggregationService(store, locks)
	ingestion := services.NewIngestionService(store, aggregation, locks, cfg.Mirror.Enabled)
	connections := services.NewConnectionService(store, registry, cfg.Sync.TokenTTL)
	syncSvc := services.NewSyncService(store, connections, ingestion, registry, services.SyncOptions{
		Delay:        cfg.Sync.Delay,
		Timeout:      cfg.Sync.Timeout,
		LookbackDays: cfg.Sync.LookbackDays,
	})

	return &Dependencies{
		Store: store,
		Services: &Services{
			Ingestion:   ingestion,
			Corrections: services.NewCorrectionService(store, aggregation, locks),
			Undo:        services.NewUndoService(store, aggregation, locks, cfg.UndoWindow),
			Connections: connections,
			Sync:        syncSvc,
			UserData:    services.NewUserDataService(store, aggregation, locks),
			Query:       services.NewQueryService(store, repositories.NewTimelineReader(reader), cache, cfg.StatsTTL),
		},
		UpSince: time.Now(),
	}
}
