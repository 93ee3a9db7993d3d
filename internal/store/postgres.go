package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/demandcast/demandcast/internal/config"
)

const (
	listByProductSQL = `
		SELECT product_id, category, txn_date, quantity
		FROM sales_transactions
		WHERE product_id = $1
		ORDER BY txn_date
	`
	categoriesSQL = `
		SELECT DISTINCT category
		FROM sales_transactions
		WHERE category <> ''
		ORDER BY category
	`
	productsByCategorySQL = `
		SELECT DISTINCT product_id
		FROM sales_transactions
		WHERE category = $1
		ORDER BY product_id
	`
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sales_transactions (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		product_id TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		txn_date TIMESTAMPTZ NOT NULL,
		quantity DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_transactions_product
		ON sales_transactions (product_id, txn_date)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_transactions_category
		ON sales_transactions (category)`,
}

// dbPool is the slice of pgxpool.Pool the store uses. Declared as an
// interface so tests can substitute a mock pool.
type dbPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on a pgx connection pool
type PostgresStore struct {
	pool dbPool
}

// NewPostgresStore connects to Postgres, verifies the connection, and
// creates the transactions table when missing
func NewPostgresStore(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := newPostgresStore(pool)
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

func newPostgresStore(pool dbPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, txns []Transaction) error {
	if err := validateTransactions(txns); err != nil {
		return err
	}
	if len(txns) == 0 {
		return nil
	}

	rows := make([][]any, len(txns))
	for i, txn := range txns {
		rows[i] = []any{txn.ProductID, txn.Category, txn.Date.UTC(), txn.Quantity}
	}

	copied, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"sales_transactions"},
		[]string{"product_id", "category", "txn_date", "quantity"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy transactions: %w", err)
	}
	if copied != int64(len(txns)) {
		return fmt.Errorf("copied %d of %d transactions", copied, len(txns))
	}

	return nil
}

func (s *PostgresStore) ListByProduct(ctx context.Context, productID string) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx, listByProductSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var txn Transaction
		if err := rows.Scan(&txn.ProductID, &txn.Category, &txn.Date, &txn.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

func (s *PostgresStore) Categories(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, categoriesSQL)
}

func (s *PostgresStore) ProductsByCategory(ctx context.Context, category string) ([]string, error) {
	return s.queryStrings(ctx, productsByCategorySQL, category)
}

func (s *PostgresStore) queryStrings(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return values, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
