// Package store persists an operator-facing journal of order state changes
// and applied trades. The journal is best effort: the trading path logs and
// continues when a write fails.
package store

import (
	"context"
	"time"

	"quikbridge/internal/domain"
)

// TradeRecord is one applied (already deduplicated and normalized) trade.
type TradeRecord struct {
	TradeNum   int64
	TransID    int64
	Instrument string
	Size       float64
	Price      float64
	Time       time.Time
}

// Journal records order state changes and applied trades.
type Journal interface {
	// RecordOrder upserts the current state of an order keyed by its
	// transaction id.
	RecordOrder(ctx context.Context, o *domain.Order) error

	// RecordTrade appends one applied trade; replays of the same trade
	// number are ignored.
	RecordTrade(ctx context.Context, rec TradeRecord) error

	Close() error
}
