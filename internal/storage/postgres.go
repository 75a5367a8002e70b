// Package storage persists trade outcomes, detected levels and pivot
// audit reports to PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
	"github.com/FOREXfunguru/FOREX-sub000/internal/trade"
)

// DB represents a database connection.
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters.
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection and runs migrations.
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			pair TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			direction TEXT NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			stop_price DOUBLE PRECISION NOT NULL,
			target_price DOUBLE PRECISION NOT NULL,
			outcome TEXT NOT NULL,
			pips DOUBLE PRECISION NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			entry_time TIMESTAMPTZ,
			end_time TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS levels (
			id SERIAL PRIMARY KEY,
			instrument TEXT NOT NULL,
			granularity TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			band_width_pips DOUBLE PRECISION NOT NULL,
			bounce_count INTEGER NOT NULL,
			total_score DOUBLE PRECISION NOT NULL,
			detected_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS pivot_audits (
			id SERIAL PRIMARY KEY,
			instrument TEXT NOT NULL,
			granularity TEXT NOT NULL,
			line TEXT NOT NULL,
			reported_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

// SaveTrade stores a trade's terminal state.
func (db *DB) SaveTrade(ctx context.Context, t *trade.Trade) error {
	var entryTime, endTime sql.NullTime
	if t.Entered {
		entryTime = sql.NullTime{Time: t.EntryTime, Valid: true}
	}
	if !t.EndTime.IsZero() {
		endTime = sql.NullTime{Time: t.EndTime, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO trades (id, pair, timeframe, direction, entry_price, stop_price,
			target_price, outcome, pips, start_time, entry_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			pips = EXCLUDED.pips,
			entry_time = EXCLUDED.entry_time,
			end_time = EXCLUDED.end_time
	`, t.ID.String(), t.Pair, t.Timeframe, t.Direction.String(),
		t.Entry.Price, t.Stop.Price, t.Target.Price,
		t.Outcome.String(), t.Pips, t.Start, entryTime, endTime)
	if err != nil {
		return fmt.Errorf("save trade %s: %w", t.ID, err)
	}
	return nil
}

// SaveLevels stores one scan's worth of detected levels.
func (db *DB) SaveLevels(ctx context.Context, instrument, granularity string, detectedAt time.Time, levels []model.Level) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO levels (instrument, granularity, price, band_width_pips,
			bounce_count, total_score, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range levels {
		if _, err := stmt.ExecContext(ctx, instrument, granularity,
			l.Price, l.BandWidthPips, l.BounceCount, l.TotalScore, detectedAt); err != nil {
			return fmt.Errorf("save level %v: %w", l.Price, err)
		}
	}
	return tx.Commit()
}

// SaveAudit stores one pivot audit report, one row per line.
func (db *DB) SaveAudit(ctx context.Context, instrument, granularity string, reportedAt time.Time, lines []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, line := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pivot_audits (instrument, granularity, line, reported_at)
			VALUES ($1, $2, $3, $4)
		`, instrument, granularity, line, reportedAt); err != nil {
			return fmt.Errorf("save audit line: %w", err)
		}
	}
	return tx.Commit()
}

// TradeSummary is the flat terminal state exposed for reporting.
type TradeSummary struct {
	ID        string
	Pair      string
	Timeframe string
	Direction string
	Outcome   string
	Pips      float64
	StartTime time.Time
	EntryTime sql.NullTime
	EndTime   sql.NullTime
}

// RecentTrades returns the most recent terminal trades, newest first.
func (db *DB) RecentTrades(ctx context.Context, limit int) ([]TradeSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, pair, timeframe, direction, outcome, pips, start_time, entry_time, end_time
		FROM trades
		ORDER BY start_time DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeSummary
	for rows.Next() {
		var s TradeSummary
		if err := rows.Scan(&s.ID, &s.Pair, &s.Timeframe, &s.Direction,
			&s.Outcome, &s.Pips, &s.StartTime, &s.EntryTime, &s.EndTime); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
