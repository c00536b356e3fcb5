package store

import (
	"context"
	"database/sql"
	"time"

	"quikbridge/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ Journal = (*SQLiteJournal)(nil)

// SQLiteJournal implements Journal backed by a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	trans_id     INTEGER PRIMARY KEY,
	instrument   TEXT NOT NULL,
	side         TEXT NOT NULL,
	order_type   TEXT NOT NULL,
	size         REAL NOT NULL,
	price        REAL NOT NULL,
	stop_price   REAL NOT NULL,
	status       TEXT NOT NULL,
	order_num    INTEGER NOT NULL,
	filled_size  REAL NOT NULL,
	avg_price    REAL NOT NULL,
	reason       TEXT NOT NULL,
	updated_at   TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS trades (
	trade_num    INTEGER PRIMARY KEY,
	trans_id     INTEGER NOT NULL,
	instrument   TEXT NOT NULL,
	size         REAL NOT NULL,
	price        REAL NOT NULL,
	recorded_at  TIMESTAMP NOT NULL
);
`

// NewSQLiteJournal opens (or creates) the journal database at dbPath and
// applies the schema.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}

// RecordOrder upserts the current state of an order.
func (s *SQLiteJournal) RecordOrder(ctx context.Context, o *domain.Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders
			(trans_id, instrument, side, order_type, size, price, stop_price,
			 status, order_num, filled_size, avg_price, reason, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trans_id) DO UPDATE SET
			status = excluded.status,
			order_num = excluded.order_num,
			filled_size = excluded.filled_size,
			avg_price = excluded.avg_price,
			reason = excluded.reason,
			updated_at = excluded.updated_at`,
		o.TransID, o.Instrument.String(), o.Side.String(), o.Type.String(),
		o.Size, o.Price, o.PriceLimit, o.Status.String(), o.OrderNum,
		o.FilledSize, o.AvgFillPrice, o.RejectReason, time.Now().UTC())
	return err
}

// RecordTrade appends one applied trade; redelivered trade numbers are
// ignored.
func (s *SQLiteJournal) RecordTrade(ctx context.Context, rec TradeRecord) error {
	when := rec.Time
	if when.IsZero() {
		when = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO trades
			(trade_num, trans_id, instrument, size, price, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.TradeNum, rec.TransID, rec.Instrument, rec.Size, rec.Price, when)
	return err
}

// Orders returns the journaled orders with the given status, most recent
// first. Used by operator tooling, not by the trading path.
func (s *SQLiteJournal) Orders(ctx context.Context, status domain.OrderStatus) ([]OrderRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trans_id, instrument, side, order_type, size, status, order_num,
		       filled_size, avg_price, reason
		FROM orders WHERE status = ? ORDER BY updated_at DESC`,
		status.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []OrderRow
	for rows.Next() {
		var r OrderRow
		err = rows.Scan(&r.TransID, &r.Instrument, &r.Side, &r.Type, &r.Size,
			&r.Status, &r.OrderNum, &r.FilledSize, &r.AvgPrice, &r.Reason)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// OrderRow is one journaled order as stored.
type OrderRow struct {
	TransID    int64
	Instrument string
	Side       string
	Type       string
	Size       float64
	Status     string
	OrderNum   int64
	FilledSize float64
	AvgPrice   float64
	Reason     string
}
