package db

import (
	"fmt"
	"time"

	"summer-miles/ledger/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"gorm.io/gorm"
)

// NewReader returns the sqlx handle used by read views. It shares gorm's pool unless a
// read replica URL is configured, in which case it dials the replica through lib/pq.
func NewReader(conn *gorm.DB, cfg config.StorageConfig) (*sqlx.DB, error) {
	if cfg.ReadReplicaURL != "" {
		return connectReplica(cfg.ReadReplicaURL)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	driverName := "sqlite3"
	if cfg.Driver == config.StorageDriverPostgres {
		driverName = "pgx"
	}
	return sqlx.NewDb(sqlDB, driverName), nil
}

func connectReplica(url string) (*sqlx.DB, error) {
	var (
		reader *sqlx.DB
		err    error
	)
	for i := 0; i < 10; i++ {
		reader, err = sqlx.Connect("postgres", url)
		if err == nil {
			return reader, nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return nil, fmt.Errorf("connect read replica: %w", err)
}
