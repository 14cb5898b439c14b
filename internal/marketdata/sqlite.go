package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// sqlite3 driver registration
	_ "github.com/mattn/go-sqlite3"

	"github.com/eddiefleurent/optionsim/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	date   INTEGER NOT NULL,
	open   REAL NOT NULL,
	high   REAL NOT NULL,
	low    REAL NOT NULL,
	close  REAL NOT NULL,
	volume REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (symbol, date)
);

CREATE TABLE IF NOT EXISTS premiums (
	symbol  TEXT NOT NULL,
	strike  REAL NOT NULL,
	class   TEXT NOT NULL,
	date    INTEGER NOT NULL,
	expiry  INTEGER NOT NULL,
	premium REAL NOT NULL,
	PRIMARY KEY (symbol, strike, class, date, expiry)
);

CREATE INDEX IF NOT EXISTS idx_premiums_ladder
	ON premiums (symbol, expiry, class, strike);
`

// SQLiteProvider serves historical bars and recorded option premiums from a
// local SQLite file. Dates are stored as unix seconds, truncated to the day
// for premium lookups.
type SQLiteProvider struct {
	db *sql.DB
}

// Compile-time interface check.
var _ Provider = (*SQLiteProvider)(nil)

// NewSQLiteProvider opens (creating if needed) the store at path.
func NewSQLiteProvider(path string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening market data store: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing market data schema: %w", err)
	}
	return &SQLiteProvider{db: db}, nil
}

// Close releases the underlying database handle.
func (p *SQLiteProvider) Close() error {
	return p.db.Close()
}

// GetSeries returns bars for [start, end] in ascending date order.
func (p *SQLiteProvider) GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		symbol, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var ts int64
		var b models.Bar
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scanning bar row: %w", err)
		}
		b.Date = time.Unix(ts, 0).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading bar rows: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s %s..%s: %w", symbol,
			start.Format("2006-01-02"), end.Format("2006-01-02"), ErrNoData)
	}
	return bars, nil
}

// GetRecordedPremium returns the premium recorded for the exact key, matching
// on the calendar day of date.
func (p *SQLiteProvider) GetRecordedPremium(ctx context.Context, symbol string, strike float64,
	class models.OptionClass, date, expiry time.Time) (float64, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	var premium float64
	err := p.db.QueryRowContext(ctx, `
		SELECT premium FROM premiums
		WHERE symbol = ? AND strike = ? AND class = ? AND date = ? AND expiry = ?`,
		symbol, strike, string(class), day.Unix(), expiry.UTC().Truncate(24*time.Hour).Unix(),
	).Scan(&premium)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("querying premium: %w", err)
	}
	return premium, nil
}

// GetStrikes returns the distinct recorded strikes for an expiry, ascending.
func (p *SQLiteProvider) GetStrikes(ctx context.Context, symbol string, expiry time.Time,
	class models.OptionClass) ([]float64, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT strike FROM premiums
		WHERE symbol = ? AND expiry = ? AND class = ?
		ORDER BY strike ASC`,
		symbol, expiry.UTC().Truncate(24*time.Hour).Unix(), string(class))
	if err != nil {
		return nil, fmt.Errorf("querying strikes: %w", err)
	}
	defer rows.Close()

	var ladder []float64
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning strike row: %w", err)
		}
		ladder = append(ladder, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading strike rows: %w", err)
	}
	if len(ladder) == 0 {
		return nil, ErrNotFound
	}
	return ladder, nil
}

// InsertBars loads a bar series into the store; used by the import command
// and test fixtures.
func (p *SQLiteProvider) InsertBars(ctx context.Context, symbol string, bars []models.Bar) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning bar insert: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO bars (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing bar insert: %w", err)
	}
	defer stmt.Close()
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, b.Date.UTC().Unix(),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting bar %s: %w", b.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

// InsertPremium records one option premium observation.
func (p *SQLiteProvider) InsertPremium(ctx context.Context, symbol string, strike float64,
	class models.OptionClass, date, expiry time.Time, premium float64) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO premiums (symbol, strike, class, date, expiry, premium)
		VALUES (?, ?, ?, ?, ?, ?)`,
		symbol, strike, string(class),
		date.UTC().Truncate(24*time.Hour).Unix(),
		expiry.UTC().Truncate(24*time.Hour).Unix(),
		premium)
	if err != nil {
		return fmt.Errorf("inserting premium: %w", err)
	}
	return nil
}
