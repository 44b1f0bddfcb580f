package repositories

import (
	"context"

	gormlib "gorm.io/gorm"
)

// Store owns the ledger connection and hands out transaction scopes.
type Store struct {
	db *gormlib.DB
}

func NewStore(db *gormlib.DB) *Store {
	return &Store{db: db}
}

// DB returns the non-transactional handle.
func (s *Store) DB() *gormlib.DB {
	return s.db
}

// Transaction runs fn in a single transaction. Returning an error rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *gormlib.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// Ping checks that the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
