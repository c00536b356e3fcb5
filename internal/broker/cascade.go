package broker

import (
	"context"

	"quikbridge/internal/domain"
)

// ocoPCCheck runs the dependent-order cascade for an order that just left
// the Accepted path. Callers hold b.mu.
//
// OCO edges are stored one-directional (declarer -> sibling), so both
// directions are scanned. Cancellation of an already-terminal partner
// no-ops inside cancelOrder, which keeps the "cancel exactly once"
// property under repeated cascades.
func (b *Broker) ocoPCCheck(ctx context.Context, o *domain.Order) {
	for declarer, sibling := range b.ocos {
		if sibling == o.TransID {
			b.cancelOrder(ctx, declarer)
		}
	}
	if sibling, ok := b.ocos[o.TransID]; ok {
		b.cancelOrder(ctx, sibling)
	}

	if o.ParentID == 0 && !o.Transmit && o.Status == domain.OrderStatusCompleted {
		// A filled chain root releases every buffered child.
		for _, id := range b.pcs[o.TransID] {
			child, ok := b.orders[id]
			if !ok || child.ParentID == 0 {
				// The root itself is the first member of its chain.
				continue
			}
			b.log.Info("releasing bracket child", "parent", o.TransID, "child", id)
			b.placeOrder(ctx, child)
		}
		return
	}

	if o.ParentID != 0 {
		// First leg wins: a terminated child cancels its siblings.
		for _, id := range b.pcs[o.ParentID] {
			if id == o.TransID {
				continue
			}
			if sibling, ok := b.orders[id]; !ok || sibling.ParentID == 0 {
				continue
			}
			b.cancelOrder(ctx, id)
		}
	}
}
