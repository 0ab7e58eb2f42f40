// Package journal persists generated setups and live triggers to SQLite.
package journal

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

var ErrClosed = errors.New("journal: store is closed")

// Entry is one journaled row. Timestamps are pre-formatted in the
// configured location so exports match what was posted.
type Entry struct {
	ID          int64
	TimestampPT string
	Kind        string
	Symbol      string
	Direction   string
	Entry       float64
	Stop        float64
	T1          float64
	T2          float64
	T3          float64
	T4          float64
	Score       float64
	ProjMovePct float64

	OptionType    string
	OptionStrike  float64
	OptionExpiry  string
	OptionDelta   float64
	OptionPremium float64
	OptionROIPct  float64
	OptionDTE     int
	OptionSpread  float64

	DDOI           string
	OpexWeek       bool
	EarningsSoon   bool
	EarningsDate   string
	EarningsDaysTo int
	ERDir          string
	ERConf         float64

	GexPeakStrike float64
	GexPeakSide   string
	GexTotal      float64
}

// csvHeader fixes the export column order.
var csvHeader = []string{
	"timestamp_pt", "kind", "symbol", "direction", "entry", "stop",
	"t1", "t2", "t3", "t4", "score", "proj_move_pct",
	"option_type", "option_strike", "option_expiry", "option_delta",
	"option_premium", "option_roi_pct", "option_dte", "option_spread",
	"ddoi", "opex_week", "earnings_soon", "earnings_date", "earnings_days_to",
	"er_dir", "er_conf", "gex_peak_strike", "gex_peak_side", "gex_total",
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp_pt     TEXT NOT NULL,
	kind             TEXT NOT NULL,
	symbol           TEXT NOT NULL,
	direction        TEXT NOT NULL,
	entry            REAL NOT NULL,
	stop             REAL NOT NULL,
	t1               REAL NOT NULL DEFAULT 0,
	t2               REAL NOT NULL DEFAULT 0,
	t3               REAL NOT NULL DEFAULT 0,
	t4               REAL NOT NULL DEFAULT 0,
	score            REAL NOT NULL DEFAULT 0,
	proj_move_pct    REAL NOT NULL DEFAULT 0,
	option_type      TEXT NOT NULL DEFAULT '',
	option_strike    REAL NOT NULL DEFAULT 0,
	option_expiry    TEXT NOT NULL DEFAULT '',
	option_delta     REAL NOT NULL DEFAULT 0,
	option_premium   REAL NOT NULL DEFAULT 0,
	option_roi_pct   REAL NOT NULL DEFAULT 0,
	option_dte       INTEGER NOT NULL DEFAULT 0,
	option_spread    REAL NOT NULL DEFAULT 0,
	ddoi             TEXT NOT NULL DEFAULT '',
	opex_week        INTEGER NOT NULL DEFAULT 0,
	earnings_soon    INTEGER NOT NULL DEFAULT 0,
	earnings_date    TEXT NOT NULL DEFAULT '',
	earnings_days_to INTEGER NOT NULL DEFAULT 0,
	er_dir           TEXT NOT NULL DEFAULT '',
	er_conf          REAL NOT NULL DEFAULT 0,
	gex_peak_strike  REAL NOT NULL DEFAULT 0,
	gex_peak_side    TEXT NOT NULL DEFAULT '',
	gex_total        REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_entries_symbol ON entries(symbol);
CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);
`

// Store wraps the SQLite journal database.
type Store struct {
	db *sql.DB
}

// Open creates the database file (and its directory) if needed and
// applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal dir create failed: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal open failed: %w", err)
	}
	// The driver is file-backed; a single writer keeps it simple.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema apply failed: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}

const insertSQL = `INSERT INTO entries (
	timestamp_pt, kind, symbol, direction, entry, stop,
	t1, t2, t3, t4, score, proj_move_pct,
	option_type, option_strike, option_expiry, option_delta,
	option_premium, option_roi_pct, option_dte, option_spread,
	ddoi, opex_week, earnings_soon, earnings_date, earnings_days_to,
	er_dir, er_conf, gex_peak_strike, gex_peak_side, gex_total
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

// Append writes a single entry.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if s.db == nil {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx, insertSQL, args(e)...)
	if err != nil {
		return fmt.Errorf("journal append failed: %w", err)
	}
	return nil
}

// AppendAll writes entries in one transaction.
func (s *Store) AppendAll(ctx context.Context, entries []Entry) error {
	if s.db == nil {
		return ErrClosed
	}
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal tx begin failed: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, insertSQL, args(e)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("journal append failed: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal tx commit failed: %w", err)
	}
	return nil
}

// ReadLast returns up to n most recent entries, newest first.
func (s *Store) ReadLast(ctx context.Context, n int) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, timestamp_pt, kind, symbol, direction, entry, stop,
		t1, t2, t3, t4, score, proj_move_pct,
		option_type, option_strike, option_expiry, option_delta,
		option_premium, option_roi_pct, option_dte, option_spread,
		ddoi, opex_week, earnings_soon, earnings_date, earnings_days_to,
		er_dir, er_conf, gex_peak_strike, gex_peak_side, gex_total
	FROM entries ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal read failed: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.TimestampPT, &e.Kind, &e.Symbol, &e.Direction, &e.Entry, &e.Stop,
			&e.T1, &e.T2, &e.T3, &e.T4, &e.Score, &e.ProjMovePct,
			&e.OptionType, &e.OptionStrike, &e.OptionExpiry, &e.OptionDelta,
			&e.OptionPremium, &e.OptionROIPct, &e.OptionDTE, &e.OptionSpread,
			&e.DDOI, &e.OpexWeek, &e.EarningsSoon, &e.EarningsDate, &e.EarningsDaysTo,
			&e.ERDir, &e.ERConf, &e.GexPeakStrike, &e.GexPeakSide, &e.GexTotal,
		); err != nil {
			return nil, fmt.Errorf("journal scan failed: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReadBySymbol returns entries for one symbol, oldest first. Backtests
// replay them in journal order.
func (s *Store) ReadBySymbol(ctx context.Context, symbol string) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp_pt, kind, symbol, direction, entry, stop, t1, t2, t3, t4, score, proj_move_pct,
			option_type, option_strike, option_expiry, option_delta, option_premium, option_roi_pct, option_dte, option_spread,
			ddoi, opex_week, earnings_soon, earnings_date, earnings_days_to, er_dir, er_conf,
			gex_peak_strike, gex_peak_side, gex_total
		FROM entries WHERE symbol = ? ORDER BY id ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("journal read failed: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.TimestampPT, &e.Kind, &e.Symbol, &e.Direction, &e.Entry, &e.Stop,
			&e.T1, &e.T2, &e.T3, &e.T4, &e.Score, &e.ProjMovePct,
			&e.OptionType, &e.OptionStrike, &e.OptionExpiry, &e.OptionDelta,
			&e.OptionPremium, &e.OptionROIPct, &e.OptionDTE, &e.OptionSpread,
			&e.DDOI, &e.OpexWeek, &e.EarningsSoon, &e.EarningsDate, &e.EarningsDaysTo,
			&e.ERDir, &e.ERConf, &e.GexPeakStrike, &e.GexPeakSide, &e.GexTotal,
		); err != nil {
			return nil, fmt.Errorf("journal scan failed: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Symbols returns the distinct journaled symbols.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM entries ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("journal read failed: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("journal scan failed: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// CSV renders the newest n entries as a CSV document for export.
func (s *Store) CSV(ctx context.Context, n int) ([]byte, error) {
	entries, err := s.ReadLast(ctx, n)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("journal csv write failed: %w", err)
	}
	for _, e := range entries {
		if err := w.Write(record(e)); err != nil {
			return nil, fmt.Errorf("journal csv write failed: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("journal csv flush failed: %w", err)
	}
	return buf.Bytes(), nil
}

func args(e Entry) []any {
	return []any{
		e.TimestampPT, e.Kind, e.Symbol, e.Direction, e.Entry, e.Stop,
		e.T1, e.T2, e.T3, e.T4, e.Score, e.ProjMovePct,
		e.OptionType, e.OptionStrike, e.OptionExpiry, e.OptionDelta,
		e.OptionPremium, e.OptionROIPct, e.OptionDTE, e.OptionSpread,
		e.DDOI, e.OpexWeek, e.EarningsSoon, e.EarningsDate, e.EarningsDaysTo,
		e.ERDir, e.ERConf, e.GexPeakStrike, e.GexPeakSide, e.GexTotal,
	}
}

func record(e Entry) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	b := func(v bool) string {
		if v {
			return "1"
		}
		return "0"
	}
	return []string{
		e.TimestampPT, e.Kind, e.Symbol, e.Direction, f(e.Entry), f(e.Stop),
		f(e.T1), f(e.T2), f(e.T3), f(e.T4), f(e.Score), f(e.ProjMovePct),
		e.OptionType, f(e.OptionStrike), e.OptionExpiry, f(e.OptionDelta),
		f(e.OptionPremium), f(e.OptionROIPct), strconv.Itoa(e.OptionDTE), f(e.OptionSpread),
		e.DDOI, b(e.OpexWeek), b(e.EarningsSoon), e.EarningsDate, strconv.Itoa(e.EarningsDaysTo),
		e.ERDir, f(e.ERConf), f(e.GexPeakStrike), e.GexPeakSide, f(e.GexTotal),
	}
}
