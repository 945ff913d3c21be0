package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stockdash/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ HoldingStore = (*SQLiteStore)(nil)

// SQLiteStore implements HoldingStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes read-modify-write sequences
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs
// migrations, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS holdings (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol        TEXT NOT NULL UNIQUE,
			shares        INTEGER NOT NULL,
			avg_cost      REAL NOT NULL,
			current_value REAL NOT NULL,
			updated_at    INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Seed inserts holdings only when the table is empty. It reports whether
// anything was written.
func (s *SQLiteStore) Seed(ctx context.Context, holdings []domain.Holding) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM holdings`).Scan(&n); err != nil {
		return false, fmt.Errorf("count holdings: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	for _, h := range holdings {
		if err := upsertHolding(ctx, tx, h); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// HoldingStore implementation
// ---------------------------------------------------------------------------

// ListHoldings returns all holdings in insertion order.
func (s *SQLiteStore) ListHoldings(ctx context.Context) ([]domain.Holding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, shares, avg_cost, current_value FROM holdings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	holdings := []domain.Holding{}
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.Symbol, &h.Shares, &h.AvgCost, &h.CurrentValue); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// GetHolding retrieves the holding for a symbol.
func (s *SQLiteStore) GetHolding(ctx context.Context, symbol string) (*domain.Holding, error) {
	var h domain.Holding
	err := s.db.QueryRowContext(ctx,
		`SELECT symbol, shares, avg_cost, current_value FROM holdings WHERE symbol = ?`, symbol,
	).Scan(&h.Symbol, &h.Shares, &h.AvgCost, &h.CurrentValue)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("holding %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query holding %s: %w", symbol, err)
	}
	return &h, nil
}

// UpdateHolding runs fn against the current holding for symbol (nil when
// there is none) and saves the result, all under the store's lock.
func (s *SQLiteStore) UpdateHolding(ctx context.Context, symbol string, fn func(*domain.Holding) (domain.Holding, error)) (domain.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.GetHolding(ctx, symbol)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return domain.Holding{}, err
	}
	h, err := fn(existing)
	if err != nil {
		return domain.Holding{}, err
	}
	if err := upsertHolding(ctx, s.db, h); err != nil {
		return domain.Holding{}, err
	}
	return h, nil
}

// DeleteHolding removes the holding for a symbol.
func (s *SQLiteStore) DeleteHolding(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM holdings WHERE symbol = ?`, symbol)
	if err != nil {
		return fmt.Errorf("delete holding %s: %w", symbol, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("holding %s: %w", symbol, ErrNotFound)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertHolding(ctx context.Context, db execer, h domain.Holding) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO holdings (symbol, shares, avg_cost, current_value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			shares = excluded.shares,
			avg_cost = excluded.avg_cost,
			current_value = excluded.current_value,
			updated_at = excluded.updated_at`,
		h.Symbol, h.Shares, h.AvgCost, h.CurrentValue, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save holding %s: %w", h.Symbol, err)
	}
	return nil
}
