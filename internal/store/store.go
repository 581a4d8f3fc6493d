// Package store persists a finished backtest run's fills and final
// portfolio snapshot to a SQLite database for later inspection.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"btengine/internal/types"
)

// Store wraps a SQLite connection holding one or more backtest runs'
// results.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at  TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS fills (
			run_id        INTEGER NOT NULL,
			order_id      TEXT NOT NULL,
			symbol        TEXT NOT NULL,
			side          TEXT NOT NULL,
			quantity      REAL NOT NULL,
			price         REAL NOT NULL,
			fee_usdt      REAL NOT NULL,
			event_time_ms INTEGER NOT NULL,
			liquidity     TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);

		CREATE TABLE IF NOT EXISTS positions (
			run_id    INTEGER NOT NULL,
			symbol    TEXT NOT NULL,
			qty       REAL NOT NULL,
			avg_price REAL NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);

		CREATE TABLE IF NOT EXISTS run_summary (
			run_id            INTEGER NOT NULL,
			realized_pnl_usdt REAL NOT NULL,
			fees_paid_usdt    REAL NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);
	`)
	return err
}

// RunSnapshot is everything SaveRun persists about one completed backtest.
type RunSnapshot struct {
	StartedAt       string
	FinishedAt      string
	Fills           []types.Fill
	Positions       map[string]PositionSnapshot
	RealizedPnLUSDT float64
	FeesPaidUSDT    float64
}

// PositionSnapshot is one symbol's terminal position.
type PositionSnapshot struct {
	Qty      float64
	AvgPrice float64
}

// SaveRun persists a full run snapshot in a single transaction and returns
// the new run's id.
func (s *Store) SaveRun(snap RunSnapshot) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO runs (started_at, finished_at) VALUES (?, ?)`, snap.StartedAt, snap.FinishedAt)
	if err != nil {
		return 0, fmt.Errorf("store: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: run id: %w", err)
	}

	fillStmt, err := tx.Prepare(`
		INSERT INTO fills (run_id, order_id, symbol, side, quantity, price, fee_usdt, event_time_ms, liquidity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare fills: %w", err)
	}
	defer fillStmt.Close()

	for _, f := range snap.Fills {
		if _, err := fillStmt.Exec(runID, f.OrderID, f.Symbol, f.Side.String(), f.Quantity, f.Price, f.FeeUSDT, f.EventTimeMs, f.Liquidity.String()); err != nil {
			return 0, fmt.Errorf("store: insert fill: %w", err)
		}
	}

	posStmt, err := tx.Prepare(`INSERT INTO positions (run_id, symbol, qty, avg_price) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare positions: %w", err)
	}
	defer posStmt.Close()

	for symbol, pos := range snap.Positions {
		if _, err := posStmt.Exec(runID, symbol, pos.Qty, pos.AvgPrice); err != nil {
			return 0, fmt.Errorf("store: insert position: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO run_summary (run_id, realized_pnl_usdt, fees_paid_usdt) VALUES (?, ?, ?)`,
		runID, snap.RealizedPnLUSDT, snap.FeesPaidUSDT); err != nil {
		return 0, fmt.Errorf("store: insert summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return runID, nil
}

// LoadFills returns every fill recorded for runID, ordered by event time.
func (s *Store) LoadFills(runID int64) ([]types.Fill, error) {
	rows, err := s.db.Query(`
		SELECT order_id, symbol, side, quantity, price, fee_usdt, event_time_ms, liquidity
		FROM fills WHERE run_id = ? ORDER BY event_time_ms ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: query fills: %w", err)
	}
	defer rows.Close()

	var out []types.Fill
	for rows.Next() {
		var f types.Fill
		var side, liquidity string
		if err := rows.Scan(&f.OrderID, &f.Symbol, &side, &f.Quantity, &f.Price, &f.FeeUSDT, &f.EventTimeMs, &liquidity); err != nil {
			return nil, fmt.Errorf("store: scan fill: %w", err)
		}
		f.Side = parseSide(side)
		f.Liquidity = parseLiquidity(liquidity)
		out = append(out, f)
	}
	return out, rows.Err()
}

func parseSide(s string) types.Side {
	if s == "sell" {
		return types.Sell
	}
	return types.Buy
}

func parseLiquidity(s string) types.Liquidity {
	if s == "taker" {
		return types.Taker
	}
	return types.Maker
}
