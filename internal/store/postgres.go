package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"brand-catalog-service/internal/config"
)

// Predefined errors for store operations
var (
	ErrProjectNotFound    = errors.New("store: project not found")
	ErrBrandNotFound      = errors.New("store: brand not found")
	ErrBrandSlugExists    = errors.New("store: brand slug already exists")
	ErrCatalogNotFound    = errors.New("store: catalog not found")
	ErrCatalogNameExists  = errors.New("store: catalog name already exists")
	ErrCategoryNotFound   = errors.New("store: category not found")
	ErrCategorySlugExists = errors.New("store: category slug already exists")
	ErrProductNotFound    = errors.New("store: product not found")
	ErrAttributeNotFound  = errors.New("store: attribute not found")
	ErrAttributeIDExists  = errors.New("store: attribute id already exists for this product")
	ErrVariantNotFound    = errors.New("store: variant not found")
	ErrSKUExists          = errors.New("store: SKU already exists")
	ErrImageNotFound      = errors.New("store: image not found")
	ErrJobNotFound        = errors.New("store: job not found")
	ErrJobStateConflict   = errors.New("store: job is not in a state that allows this change")
)

const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sqlx.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// OpenPostgres connects to PostgreSQL, applies pool limits and pings the server.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	return db, nil
}

// DB exposes the pool for components that share it, such as the job listener health check.
func (s *PostgresStore) DB() *sqlx.DB {
	return s.db
}

// withTx runs fn inside a transaction, committing on success and rolling back otherwise.
func (s *PostgresStore) withTx(ctx context.Context, name string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: %s failed to begin transaction: %w", name, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("transaction rollback failed", zap.String("op", name), zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: %s failed to commit: %w", name, err)
	}
	return nil
}

// uniqueViolationOn reports whether err is a unique violation on a constraint whose name contains constraint.
func uniqueViolationOn(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return strings.Contains(pqErr.Constraint, constraint)
	}
	return false
}

// checkAffected turns a zero-row result into notFound.
func checkAffected(res interface{ RowsAffected() (int64, error) }, op string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: %s failed to get rows affected: %w", op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.Info("closing database connection pool")
	if err := s.db.Close(); err != nil {
		s.logger.Error("failed to close database connection pool", zap.Error(err))
		return err
	}
	return nil
}
