package store

import (
	"context"
	"path/filepath"
	"testing"

	"quikbridge/internal/domain"
)

func openTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLiteJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewSQLiteJournal returned error: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordOrderUpsert(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	o := &domain.Order{
		TransID:    1,
		Instrument: domain.Instrument{ClassCode: "TQBR", SecCode: "SBER"},
		Side:       domain.OrderSideBuy,
		Type:       domain.OrderTypeLimit,
		Size:       10,
		Price:      250,
		Status:     domain.OrderStatusSubmitted,
	}
	if err := j.RecordOrder(ctx, o); err != nil {
		t.Fatalf("RecordOrder returned error: %v", err)
	}

	o.Status = domain.OrderStatusCompleted
	o.OrderNum = 555
	o.FilledSize = 10
	o.AvgFillPrice = 249.5
	if err := j.RecordOrder(ctx, o); err != nil {
		t.Fatalf("RecordOrder (update) returned error: %v", err)
	}

	rows, err := j.Orders(ctx, domain.OrderStatusCompleted)
	if err != nil {
		t.Fatalf("Orders returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Orders returned %d rows, want 1", len(rows))
	}
	if rows[0].OrderNum != 555 || rows[0].AvgPrice != 249.5 {
		t.Errorf("row = %+v, want order_num 555 avg 249.5", rows[0])
	}

	if rows, _ := j.Orders(ctx, domain.OrderStatusSubmitted); len(rows) != 0 {
		t.Errorf("stale submitted row survived the upsert: %+v", rows)
	}
}

func TestRecordTradeIgnoresReplay(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	rec := TradeRecord{TradeNum: 42, TransID: 1, Instrument: "TQBR.SBER", Size: 10, Price: 250}
	if err := j.RecordTrade(ctx, rec); err != nil {
		t.Fatalf("RecordTrade returned error: %v", err)
	}
	rec.Price = 999 // a replay must not overwrite the original row
	if err := j.RecordTrade(ctx, rec); err != nil {
		t.Fatalf("RecordTrade (replay) returned error: %v", err)
	}

	var count int
	var price float64
	err := j.db.QueryRow(`SELECT COUNT(*), MAX(price) FROM trades WHERE trade_num = 42`).Scan(&count, &price)
	if err != nil {
		t.Fatalf("query trades: %v", err)
	}
	if count != 1 || price != 250 {
		t.Errorf("count=%d price=%v, want 1/250", count, price)
	}
}
