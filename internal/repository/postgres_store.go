package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store over database/sql with lib/pq.
type PostgresStore struct {
	db *sql.DB // nil inside a transaction scope
	q  DBTX
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

func (s *PostgresStore) Runs() RunsRepo         { return &PostgresRunsRepo{q: s.q} }
func (s *PostgresStore) Regions() RegionsRepo   { return &PostgresRegionsRepo{q: s.q} }
func (s *PostgresStore) Capacity() CapacityRepo { return &PostgresCapacityRepo{q: s.q} }
func (s *PostgresStore) Metrics() MetricsRepo   { return &PostgresMetricsRepo{q: s.q} }

// InTransaction runs fn against transaction-bound repositories. The
// transaction commits only if fn returns nil and rolls back otherwise, so
// partial writes never become visible under a failed run.
func (s *PostgresStore) InTransaction(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		return fmt.Errorf("nested transactions are not supported")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&PostgresStore{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
