package broker

import (
	"context"

	"quikbridge/internal/domain"
	"quikbridge/internal/quik"
	"quikbridge/internal/store"
)

// onTransReply applies one transaction acknowledgement. Callers hold b.mu.
//
// Acknowledgements with a zero transaction id, or one absent from the
// registry, belong to manual/foreign orders and are dropped without any
// mutation or notification.
func (b *Broker) onTransReply(ctx context.Context, ev quik.TransReply) {
	if ev.TransID == 0 {
		b.log.Debug("reply for order placed outside the bridge", "order_num", ev.OrderNum)
		return
	}
	o, ok := b.orders[ev.TransID]
	if !ok {
		b.log.Debug("reply for unknown transaction", "trans_id", ev.TransID, "order_num", ev.OrderNum)
		return
	}
	// Remember the exchange number for later cancellation lookups.
	o.OrderNum = ev.OrderNum

	outcome := classifyTransReply(ev.Status, ev.ResultMsg)
	transReplies.WithLabelValues(outcome.String()).Inc()

	switch outcome {
	case replyRegistered:
		o.Status = domain.OrderStatusAccepted
	case replyRemoved:
		o.Status = domain.OrderStatusCanceled
	case replyFailed:
		o.Status = domain.OrderStatusRejected
		o.RejectReason = ev.ResultMsg
	case replyMargin:
		o.Status = domain.OrderStatusMargin
		o.RejectReason = ev.ResultMsg
	case replySoft, replyIgnored:
		// The cancellation simply could not be applied, or the reply is an
		// interim one: the order's state stays as it is.
		b.log.Debug("reply left order untouched", "trans_id", o.TransID, "status", ev.Status, "result", ev.ResultMsg)
		return
	}

	b.log.Info("order acknowledged", "trans_id", o.TransID, "order_num", o.OrderNum, "status", o.Status.String())
	b.journalOrder(ctx, o)
	b.notify(o)
	if o.Status != domain.OrderStatusAccepted {
		b.ocoPCCheck(ctx, o)
	}
}

// onTrade applies one trade report: dedup, quantity/price normalization,
// position ledger update, order execution accounting, and the completion
// cascade. Callers hold b.mu.
func (b *Broker) onTrade(ctx context.Context, ev quik.Trade) {
	if ev.TransID == 0 {
		b.log.Debug("trade for order placed outside the bridge", "order_num", ev.OrderNum)
		return
	}
	o, ok := b.orders[ev.TransID]
	if !ok {
		b.log.Debug("trade for unknown transaction", "trans_id", ev.TransID, "order_num", ev.OrderNum)
		return
	}
	// A stop order triggers into a limit order under a new exchange number.
	o.OrderNum = ev.OrderNum

	in := domain.Instrument{ClassCode: ev.ClassCode, SecCode: ev.SecCode}
	seen := b.tradeNums[in]
	if seen == nil {
		seen = make(map[int64]struct{})
		b.tradeNums[in] = seen
	}
	if _, dup := seen[ev.TradeNum]; dup {
		tradesDuplicate.Inc()
		b.log.Debug("duplicate trade dropped", "trans_id", o.TransID, "trade_num", ev.TradeNum)
		return
	}
	seen[ev.TradeNum] = struct{}{}

	si, err := b.symbolInfo(ctx, in)
	if err != nil {
		b.log.Error("trade for unresolvable instrument", "instrument", in.String(), "err", err)
		return
	}

	size := ev.Qty
	price := ev.Price
	if !si.Derivative() {
		size = quik.LotsToSize(si, size)
		price = quik.FromQuikPrice(si, price)
	}
	if ev.IsSell() {
		size = -size
	}

	pos := b.position(in)
	psize, pprice, opened, closed := pos.Update(size, price)
	o.Execute(size, price, opened, closed, psize, pprice)
	tradesApplied.Inc()
	b.journalTrade(ctx, ev, in, size, price)

	if o.Remaining() != 0 {
		if o.Status != domain.OrderStatusPartial {
			o.Status = domain.OrderStatusPartial
			b.log.Info("order partially filled", "trans_id", o.TransID, "filled", o.FilledSize, "remaining", o.Remaining())
			b.journalOrder(ctx, o)
			b.notify(o)
		}
		return
	}

	o.Status = domain.OrderStatusCompleted
	b.log.Info("order completed", "trans_id", o.TransID, "avg_price", o.AvgFillPrice)
	b.journalOrder(ctx, o)
	b.notify(o)
	// The dependent-order cascade runs only on full completion: partial
	// fills never cancel an OCO partner or release children.
	b.ocoPCCheck(ctx, o)
}

// position returns the ledger entry for the instrument, creating a flat one
// on first reference. Callers hold b.mu.
func (b *Broker) position(in domain.Instrument) *domain.Position {
	p, ok := b.positions[in]
	if !ok {
		p = &domain.Position{}
		b.positions[in] = p
	}
	return p
}

func (b *Broker) journalTrade(ctx context.Context, ev quik.Trade, in domain.Instrument, size, price float64) {
	if b.journal == nil {
		return
	}
	rec := store.TradeRecord{
		TradeNum:   ev.TradeNum,
		TransID:    ev.TransID,
		Instrument: in.String(),
		Size:       size,
		Price:      price,
	}
	if err := b.journal.RecordTrade(ctx, rec); err != nil {
		b.log.Warn("journal: fail record trade", "trade_num", ev.TradeNum, "err", err)
	}
}
