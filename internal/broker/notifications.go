package broker

import "quikbridge/internal/domain"

// The notification queue delivers immutable order snapshots to the caller
// in FIFO order. Once per external scheduling tick a heartbeat placeholder
// (a nil entry) is pushed even when nothing changed, so callers relying on
// liveness see exactly one entry per tick.

// notify enqueues a snapshot of the order. Callers hold b.mu.
func (b *Broker) notify(o *domain.Order) {
	b.notifs = append(b.notifs, o.Clone())
}

// NextTick pushes the per-tick heartbeat placeholder.
func (b *Broker) NextTick() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifs = append(b.notifs, nil)
}

// Poll pops the oldest notification. The second return value is false when
// the queue is empty; a (nil, true) result is a heartbeat placeholder.
func (b *Broker) Poll() (*domain.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.notifs) == 0 {
		return nil, false
	}
	o := b.notifs[0]
	b.notifs = b.notifs[1:]
	return o, true
}
