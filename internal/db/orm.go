package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"summer-miles/ledger/internal/config"
	"summer-miles/ledger/internal/logging"
	models "summer-miles/ledger/internal/models/gorm"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured ledger backend. The driver is chosen here and nowhere else.
func Open(cfg config.StorageConfig) (*gorm.DB, error) {
	// Missed lookups are expected for fresh activities.
	gormLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch cfg.Driver {
	case config.StorageDriverPostgres:
		conn, err = gorm.Open(postgres.Open(cfg.PostgresDSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	case config.StorageDriverSQLite:
		conn, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer; one connection keeps shared-cache memory databases alive too.
		sqlDB.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}

	logging.Info("Connected to ledger store via GORM", "driver", cfg.Driver)
	return conn, nil
}

// Migrate creates or updates every ledger table.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrate ledger schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
