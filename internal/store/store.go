// Package store is the relational persistence layer: net positions keyed by
// market, one daily PnL row per UTC date, and an append-only trade log,
// plus a view exposing a running cumulative-PnL column.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/clobmm/engine/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	market_id  TEXT PRIMARY KEY,
	net        TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_pnl (
	date                    TEXT PRIMARY KEY,
	realized_pnl            TEXT NOT NULL,
	capital_snapshot        TEXT NOT NULL,
	trade_count             INTEGER NOT NULL DEFAULT 0,
	circuit_breaker_tripped INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trade_log (
	id          TEXT PRIMARY KEY,
	ts          INTEGER NOT NULL,
	market_id   TEXT NOT NULL,
	market_name TEXT NOT NULL,
	action      TEXT NOT NULL,
	side        TEXT NOT NULL,
	price_pips  INTEGER NOT NULL,
	size        REAL NOT NULL,
	paper       INTEGER NOT NULL,
	event_type  TEXT NOT NULL DEFAULT '',
	order_id    TEXT NOT NULL DEFAULT '',
	latency_ms  INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_trade_log_ts ON trade_log(ts DESC);

CREATE TABLE IF NOT EXISTS config_versions (
	content_hash TEXT PRIMARY KEY,
	config_json  TEXT NOT NULL,
	first_seen_at INTEGER NOT NULL,
	use_count    INTEGER NOT NULL DEFAULT 1
);

CREATE VIEW IF NOT EXISTS daily_pnl_cumulative AS
SELECT
	date,
	realized_pnl,
	capital_snapshot,
	trade_count,
	circuit_breaker_tripped,
	(
		SELECT COALESCE(SUM(CAST(d2.realized_pnl AS REAL)), 0)
		FROM daily_pnl d2
		WHERE d2.date <= d1.date
	) AS cumulative_pnl
FROM daily_pnl d1;
`

// Store wraps a single-writer SQLite connection. modernc.org/sqlite is the
// pure-Go driver (no CGo), matching the no-fine-grained-locking contract of
// a single-threaded cycle driver plus concurrent readers from the control
// API.
type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertPosition writes the net position for a market, replacing any prior
// value for that market id.
func (s *Store) UpsertPosition(ctx context.Context, p domain.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (market_id, net, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(market_id) DO UPDATE SET net = excluded.net, updated_at = excluded.updated_at
	`, p.MarketID, p.Net.String(), time.Now().Unix())
	return err
}

func (s *Store) GetPosition(ctx context.Context, marketID string) (domain.Position, error) {
	row := s.db.QueryRowContext(ctx, `SELECT market_id, net FROM positions WHERE market_id = ?`, marketID)
	var p domain.Position
	var net string
	if err := row.Scan(&p.MarketID, &net); err != nil {
		if err == sql.ErrNoRows {
			return domain.Position{MarketID: marketID, Net: decimal.Zero}, nil
		}
		return p, err
	}
	d, err := decimal.NewFromString(net)
	if err != nil {
		return p, err
	}
	p.Net = d
	return p, nil
}

func (s *Store) ListPositions(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT market_id, net FROM positions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		var net string
		if err := rows.Scan(&p.MarketID, &net); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(net)
		if err != nil {
			return nil, err
		}
		p.Net = d
		out = append(out, p)
	}
	return out, rows.Err()
}

// ResetPositions zeroes every stored position, per the reset_positions
// control action.
func (s *Store) ResetPositions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE positions SET net = '0', updated_at = ?`, time.Now().Unix())
	return err
}

func (s *Store) GetDailyPnL(ctx context.Context, date string) (domain.DailyPnL, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT date, realized_pnl, capital_snapshot, trade_count, circuit_breaker_tripped
		FROM daily_pnl WHERE date = ?
	`, date)

	var d domain.DailyPnL
	var realized, capital string
	var tripped int
	if err := row.Scan(&d.Date, &realized, &capital, &d.TradeCount, &tripped); err != nil {
		if err == sql.ErrNoRows {
			return domain.DailyPnL{}, nil
		}
		return d, err
	}
	var err error
	if d.RealizedPnL, err = decimal.NewFromString(realized); err != nil {
		return d, err
	}
	if d.CapitalSnapshot, err = decimal.NewFromString(capital); err != nil {
		return d, err
	}
	d.CircuitBreakerTripped = tripped != 0
	return d, nil
}

// UpsertDailyPnL writes the row for its date, atomically replacing any
// prior row for the same date (unique key on date).
func (s *Store) UpsertDailyPnL(ctx context.Context, row domain.DailyPnL) error {
	tripped := 0
	if row.CircuitBreakerTripped {
		tripped = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_pnl (date, realized_pnl, capital_snapshot, trade_count, circuit_breaker_tripped)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			realized_pnl = excluded.realized_pnl,
			capital_snapshot = excluded.capital_snapshot,
			trade_count = excluded.trade_count,
			circuit_breaker_tripped = excluded.circuit_breaker_tripped
	`, row.Date, row.RealizedPnL.String(), row.CapitalSnapshot.String(), row.TradeCount, tripped)
	return err
}

// PnLHistoryRow is one row of the cumulative-PnL view.
type PnLHistoryRow struct {
	domain.DailyPnL
	CumulativePnL decimal.Decimal
}

// PnLHistory returns up to limit most-recent daily rows, newest first.
func (s *Store) PnLHistory(ctx context.Context, limit int) ([]PnLHistoryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, realized_pnl, capital_snapshot, trade_count, circuit_breaker_tripped, cumulative_pnl
		FROM daily_pnl_cumulative ORDER BY date DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PnLHistoryRow
	for rows.Next() {
		var r PnLHistoryRow
		var realized, capital, cumulative string
		var tripped int
		if err := rows.Scan(&r.Date, &realized, &capital, &r.TradeCount, &tripped, &cumulative); err != nil {
			return nil, err
		}
		if r.RealizedPnL, err = decimal.NewFromString(realized); err != nil {
			return nil, err
		}
		if r.CapitalSnapshot, err = decimal.NewFromString(capital); err != nil {
			return nil, err
		}
		if r.CumulativePnL, err = decimal.NewFromString(cumulative); err != nil {
			return nil, err
		}
		r.CircuitBreakerTripped = tripped != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendTradeLog inserts an immutable audit entry.
func (s *Store) AppendTradeLog(ctx context.Context, e domain.TradeLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	paper := 0
	if e.Paper {
		paper = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trade_log (id, ts, market_id, market_name, action, side, price_pips, size, paper,
			event_type, order_id, latency_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Time.Unix(), e.MarketID, e.MarketName, string(e.Action), string(e.Side),
		e.Price.Pips, e.Size, paper, e.Note.EventType, e.Note.OrderID, e.Note.LatencyMS, e.Note.Error)
	return err
}

// ConfigVersion is one distinct config content seen by a run_cycle action,
// keyed by the sha256 of its canonical JSON encoding rather than an
// incrementing counter: the same tunables submitted twice record once, with
// use_count tracking repeats.
type ConfigVersion struct {
	ContentHash string
	ConfigJSON  string
	FirstSeenAt time.Time
	UseCount    int
}

// HashConfig returns the hex sha256 of v's JSON encoding, the key used by
// RecordConfigVersion. Exported so callers can dedupe before reaching for
// the store.
func HashConfig(v interface{}) (string, string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("hash config: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), string(b), nil
}

// RecordConfigVersion persists the run_cycle-supplied config as a row keyed
// by its content hash, incrementing use_count if the same content was
// already recorded. Returns the hash so callers can log or return it.
func (s *Store) RecordConfigVersion(ctx context.Context, v interface{}) (string, error) {
	hash, raw, err := HashConfig(v)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO config_versions (content_hash, config_json, first_seen_at, use_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(content_hash) DO UPDATE SET use_count = use_count + 1
	`, hash, raw, time.Now().Unix())
	if err != nil {
		return "", err
	}
	return hash, nil
}

// ConfigVersionHistory returns up to limit recorded config contents, most
// recently first-seen first.
func (s *Store) ConfigVersionHistory(ctx context.Context, limit int) ([]ConfigVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_hash, config_json, first_seen_at, use_count
		FROM config_versions ORDER BY first_seen_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConfigVersion
	for rows.Next() {
		var v ConfigVersion
		var firstSeen int64
		if err := rows.Scan(&v.ContentHash, &v.ConfigJSON, &firstSeen, &v.UseCount); err != nil {
			return nil, err
		}
		v.FirstSeenAt = time.Unix(firstSeen, 0)
		out = append(out, v)
	}
	return out, rows.Err()
}

// RecentTradeLog returns the most recent n trade log entries, newest first.
func (s *Store) RecentTradeLog(ctx context.Context, n int) ([]domain.TradeLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, market_id, market_name, action, side, price_pips, size, paper,
			event_type, order_id, latency_ms, error
		FROM trade_log ORDER BY ts DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TradeLogEntry
	for rows.Next() {
		var e domain.TradeLogEntry
		var ts int64
		var paper int
		var pips int
		if err := rows.Scan(&e.ID, &ts, &e.MarketID, &e.MarketName, &e.Action, &e.Side, &pips, &e.Size,
			&paper, &e.Note.EventType, &e.Note.OrderID, &e.Note.LatencyMS, &e.Note.Error); err != nil {
			return nil, err
		}
		e.Time = time.Unix(ts, 0)
		e.Paper = paper != 0
		e.Price = domain.Price{Pips: pips}
		out = append(out, e)
	}
	return out, rows.Err()
}
