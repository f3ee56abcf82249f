package watchlist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/signalist/signalist/pkg/models"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

const schema = `
CREATE TABLE IF NOT EXISTS watchlist (
	symbol   TEXT PRIMARY KEY,
	company  TEXT NOT NULL DEFAULT '',
	added_at TEXT NOT NULL
)`

// SQLiteStore keeps one row per symbol in an embedded SQLite database. Add
// is a single atomic upsert, so concurrent writers cannot lose updates.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dbPath and applies the
// schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// A single connection serializes writers and keeps :memory: databases
	// shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.WatchlistItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, company, added_at FROM watchlist ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	items := []models.WatchlistItem{}
	for rows.Next() {
		var it models.WatchlistItem
		if err := rows.Scan(&it.Symbol, &it.Company, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) Add(ctx context.Context, symbol, company string) (bool, error) {
	sym := normalize(symbol)
	if sym == "" {
		return false, ErrEmptySymbol
	}

	it := newItem(sym, company)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlist (symbol, company, added_at) VALUES (?, ?, ?)
		 ON CONFLICT(symbol) DO NOTHING`,
		it.Symbol, it.Company, it.AddedAt)
	if err != nil {
		return false, fmt.Errorf("add %s: %w", sym, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, symbol string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE symbol = ?`, normalize(symbol))
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", symbol, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) Contains(ctx context.Context, symbol string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM watchlist WHERE symbol = ?`, normalize(symbol)).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("contains %s: %w", symbol, err)
	}
	return true, nil
}

func (s *SQLiteStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM watchlist ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	syms := []string{}
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		syms = append(syms, sym)
	}
	return syms, rows.Err()
}
