package broker

import (
	"context"
	"testing"

	"quikbridge/internal/domain"
	"quikbridge/internal/quik"
)

// placeLimit submits a plain limit order and drains its creation
// notification so tests see only the transitions they trigger.
func placeLimit(t *testing.T, b *Broker, in domain.Instrument, size, price float64) *domain.Order {
	t.Helper()
	o := b.Buy(context.Background(), OrderRequest{
		Instrument: in, Size: size, Type: domain.OrderTypeLimit, Price: price, Transmit: true,
	})
	if o.Status != domain.OrderStatusSubmitted {
		t.Fatalf("setup: Status = %v, want submitted", o.Status)
	}
	drainNotifications(b)
	return o
}

func TestTransReplyRegistered(t *testing.T) {
	b, _ := newTestBroker(t, Config{})
	ctx := context.Background()
	o := placeLimit(t, b, sber, 10, 100)

	b.onTransReply(ctx, quik.TransReply{TransID: o.TransID, OrderNum: 123, Status: 15})

	got, _ := b.Order(o.TransID)
	if got.Status != domain.OrderStatusAccepted {
		t.Errorf("Status = %v, want accepted", got.Status)
	}
	if got.OrderNum != 123 {
		t.Errorf("OrderNum = %d, want 123", got.OrderNum)
	}
	if n := drainNotifications(b); len(n) != 1 {
		t.Errorf("%d notifications, want 1", len(n))
	}
}

func TestTransReplyRemoved(t *testing.T) {
	b, _ := newTestBroker(t, Config{})
	ctx := context.Background()
	o := placeLimit(t, b, sber, 10, 100)

	b.onTransReply(ctx, quik.TransReply{TransID: o.TransID, OrderNum: 123, Status: 3, ResultMsg: "заявка снята"})

	got, _ := b.Order(o.TransID)
	if got.Status != domain.OrderStatusCanceled {
		t.Errorf("Status = %v, want canceled", got.Status)
	}
}

func TestTransReplyFailed(t *testing.T) {
	b, _ := newTestBroker(t, Config{})
	ctx := context.Background()
	o := placeLimit(t, b, sber, 10, 100)

	b.onTransReply(ctx, quik.TransReply{TransID: o.TransID, Status: 12, ResultMsg: "недостаточно средств"})

	got, _ := b.Order(o.TransID)
	if got.Status != domain.OrderStatusRejected {
		t.Errorf("Status = %v, want rejected", got.Status)
	}
	if got.RejectReason == "" {
		t.Error("RejectReason is empty")
	}
}

func TestTransReplyMargin(t *testing.T) {
	b, _ := newTestBroker(t, Config{})
	ctx := context.Background()
	o := placeLimit(t, b, sber, 10, 100)

	b.onTransReply(ctx, quik.TransReply{TransID: o.TransID, Status: 6, ResultMsg: "проверка лимитов"})

	got, _ := b.Order(o.TransID)
	if got.Status != domain.OrderStatusMargin {
		t.Errorf("Status = %v, want margin", got.Status)
	}
}

func TestTransReplyForeignOrderDropped(t *testing.T) {
	b, _ := newTestBroker(t, Config{})
	ctx := context.Background()
	o := placeLimit(t, b, sber, 10, 100)

	// Zero trans id: order placed manually in the terminal.
	b.onTransReply(ctx, quik.TransReply{TransID: 0, OrderNum: 500, Status: 15})
	// Unknown trans id: another session on the same login.
	b.onTransReply(ctx, quik.TransReply{TransID: 424242, OrderNum: 501, Status: 15})

	got, _ := b.Order(o.TransID)
	if got.Status != domain.OrderStatusSubmitted {
		t.Errorf("foreign reply mutated local order to %v", got.Status)
	}
	if n := drainNotifications(b); len(n) != 0 {
		t.Errorf("%d notifications for foreign replies, want 0", len(n))
	}
}

func TestTransReplySoftLeavesState(t *testing.T) {
	tests := []struct {
		name   string
		status int
		msg    string
	}{
		{"kill on a gone order", 4, "не найдена заявка 123"},
		{"kill on a non-cancelable order", 5, "Вы не можете снять данную заявку"},
		{"transaction rate limit", 10, "превышен лимит транзакций"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBroker(t, Config{})
			ctx := context.Background()
			o := placeLimit(t, b, sber, 10, 100)
			b.onTransReply(ctx, quik.TransReply{TransID: o.TransID, OrderNum: 200, Status: 15})
			drainNotifications(b)

			b.onTransReply(ctx, quik.TransReply{TransID: o.TransID, OrderNum: 200, Status: tt.status, ResultMsg: tt.msg})

			got, _ := b.Order(o.TransID)
			if got.Status != domain.OrderStatusAccepted {
				t.Errorf("Status = %v, want accepted to survive the soft failure", got.Status)
			}
			if n := drainNotifications(b); len(n) != 0 {
				t.Errorf("%d notifications for a soft failure, want 0", len(n))
			}
		})
	}
}

func TestTradePartialThenCompleted(t *testing.T) {
	b, _ := newTestBroker(t, Config{})
	ctx := context.Background()
	o := placeLimit(t, b, sber, 20, 250) // 2 lots of 10

	b.onTrade(ctx, quik.Trade{TradeNum: 1, TransID: o.TransID, OrderNum: 300,
		ClassCode: "TQBR", SecCode: "SBER", Qty: 1, Price: 250})

	got, _ := b.Order(o.TransID)
	if got.Status != domain.OrderStatusPartial {
		t.Fatalf("Status = %v, want partial", got.Status)
	}
	if got.FilledSize != 10 {
		t.Errorf("FilledSize = %v, want 10", got.FilledSize)
	}
	if got.Remaining() != 10 {
		t.Errorf("Remaining = %v, want 10", got.Remaining())
	}

	b.onTrade(ctx, quik.Trade{TradeNum: 2, TransID: o.TransID, OrderNum: 300,
		ClassCode: "TQBR", SecCode: "SBER", Qty: 1, Price: 251})

	got, _ = b.Order(o.TransID)
	if got.Status != domain.OrderStatusCompleted {
		t.Fatalf("Status = %v, want completed", got.Status)
	}
	if got.FilledSize != 20 {
		t.Errorf("FilledSize = %v, want 20", got.FilledSize)
	}
	if got.AvgFillPrice != 250.5 {
		t.Errorf("AvgFillPrice = %v, want 250.5", got.AvgFillPrice)
	}

	pos := b.Position(sber)
	if pos.Size != 20 || pos.Price != 250.5 {
		t.Errorf("position = %+v, want 20 @ 250.5", pos)
	}
}

func TestTradeDuplicateIgnored(t *testing.T) {
	b, _ := newTestBroker(t, Config{})
	ctx := context.Background()
	o := placeLimit(t, b, sber, 20, 250)

	tr := quik.Trade{TradeNum: 7, TransID: o.TransID, OrderNum: 300,
		ClassCode: "TQBR", SecCode: "SBER", Qty: 1, Price: 250}
	b.onTrade(ctx, tr)
	b.onTrade(ctx, tr) // replayed by the terminal

	got, _ := b.Order(o.TransID)
	if got.FilledSize != 10 {
		t.Errorf("FilledSize = %v after a replay, want 10", got.FilledSize)
	}
	if pos := b.Position(sber); pos.Size != 10 {
		t.Errorf("position size = %v after a replay, want 10", pos.Size)
	}
}

func TestTradeSellFlagNegatesSize(t *testing.T) {
	b, _ := newTestBroker(t, Config{})
	ctx := context.Background()

	o := b.Sell(ctx, OrderRequest{
		Instrument: sber, Size: 10, Type: domain.OrderTypeLimit, Price: 250, Transmit: true,
	})
	drainNotifications(b)

	b.onTrade(ctx, quik.Trade{TradeNum: 1, TransID: o.TransID, OrderNum: 300,
		ClassCode: "TQBR", SecCode: "SBER", Qty: 1, Flags: 0b100, Price: 250})

	got, _ := b.Order(o.TransID)
	if got.Status != domain.OrderStatusCompleted {
		t.Fatalf("Status = %v, want completed", got.Status)
	}
	if pos := b.Position(sber); pos.Size != -10 {
		t.Errorf("position size = %v, want -10", pos.Size)
	}
}

func TestTradeForeignOrderDropped(t *testing.T) {
	b, _ := newTestBroker(t, Config{})
	ctx := context.Background()

	b.onTrade(ctx, quik.Trade{TradeNum: 1, TransID: 0, OrderNum: 42,
		ClassCode: "TQBR", SecCode: "SBER", Qty: 1, Price: 250})
	b.onTrade(ctx, quik.Trade{TradeNum: 2, TransID: 31337, OrderNum: 43,
		ClassCode: "TQBR", SecCode: "SBER", Qty: 1, Price: 250})

	if pos := b.Position(sber); pos.Size != 0 {
		t.Errorf("foreign trade touched the ledger: %+v", pos)
	}
	if n := drainNotifications(b); len(n) != 0 {
		t.Errorf("%d notifications for foreign trades, want 0", len(n))
	}
}

func TestDerivativeTradeKeepsNativeUnits(t *testing.T) {
	b, _ := newTestBroker(t, Config{SlippageSteps: 5})
	ctx := context.Background()

	o := b.Buy(ctx, OrderRequest{
		Instrument: siz5, Size: 2, Type: domain.OrderTypeMarket, Transmit: true,
	})
	drainNotifications(b)

	b.onTrade(ctx, quik.Trade{TradeNum: 1, TransID: o.TransID, OrderNum: 400,
		ClassCode: "SPBFUT", SecCode: "SiZ5", Qty: 2, Price: 90001})

	got, _ := b.Order(o.TransID)
	if got.Status != domain.OrderStatusCompleted {
		t.Fatalf("Status = %v, want completed", got.Status)
	}
	if pos := b.Position(siz5); pos.Size != 2 || pos.Price != 90001 {
		t.Errorf("position = %+v, want 2 @ 90001", pos)
	}
}

func TestPositionRoundTrip(t *testing.T) {
	b, _ := newTestBroker(t, Config{})
	ctx := context.Background()

	buy := placeLimit(t, b, sber, 10, 100)
	b.onTrade(ctx, quik.Trade{TradeNum: 1, TransID: buy.TransID, OrderNum: 1,
		ClassCode: "TQBR", SecCode: "SBER", Qty: 1, Price: 100})

	sell := b.Sell(ctx, OrderRequest{
		Instrument: sber, Size: 10, Type: domain.OrderTypeLimit, Price: 110, Transmit: true,
	})
	b.onTrade(ctx, quik.Trade{TradeNum: 2, TransID: sell.TransID, OrderNum: 2,
		ClassCode: "TQBR", SecCode: "SBER", Qty: 1, Flags: 0b100, Price: 110})

	pos := b.Position(sber)
	if pos.Size != 0 {
		t.Errorf("position size = %v after a round trip, want 0", pos.Size)
	}
	if pos.Price != 0 {
		t.Errorf("position price = %v after flattening, want 0", pos.Price)
	}
}
