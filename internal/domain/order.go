package domain

import (
	"math"
	"time"
)

// Order is one order placed (or about to be placed) through the bridge.
//
// Identity is the locally assigned TransID: unique, monotonically increasing,
// never reused within a process. Parent/OCO relations are held as transaction
// ids into the registry, never as embedded orders, so both sides of a
// relation can be mutated independently by the reconciliation handler.
type Order struct {
	TransID    int64
	Instrument Instrument
	Side       OrderSide
	Size       float64 // signed: buy > 0, sell < 0
	Price      float64 // limit price, or trigger price for stop kinds
	PriceLimit float64 // limit price of a stop-limit order
	Type       OrderType
	TIF        TimeInForce
	GoodTill   time.Time // expiry date when TIF is TimeInForceDate
	Status     OrderStatus

	// Dependent-order topology. Zero means "no relation".
	ParentID int64
	OCOID    int64
	// Transmit=false buffers the order until the terminal member of its
	// parent/child chain arrives.
	Transmit bool

	// Gateway-assigned side table, filled in as the venue responds.
	Account      *Account
	OrderNum     int64
	MinPriceStep float64

	// Execution accumulation across fills.
	FilledSize    float64 // signed, same convention as Size
	AvgFillPrice  float64
	OpenedSize    float64
	ClosedSize    float64
	PositionSize  float64 // position after the latest fill
	PositionPrice float64

	RejectReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsBuy reports whether the order is on the buy side.
func (o *Order) IsBuy() bool {
	return o.Side == OrderSideBuy
}

// Alive reports whether the order is still in a non-terminal state.
func (o *Order) Alive() bool {
	return !o.Status.Terminal()
}

// Remaining returns the signed unfilled size.
func (o *Order) Remaining() float64 {
	return o.Size - o.FilledSize
}

// Execute applies one fill to the order, accumulating filled size, the
// volume-weighted average fill price, the opened/closed breakdown reported
// by the position ledger, and the resulting position snapshot.
func (o *Order) Execute(size, price, opened, closed, posSize, posPrice float64) {
	filledAbs := math.Abs(o.FilledSize)
	fillAbs := math.Abs(size)
	if filledAbs+fillAbs != 0 {
		o.AvgFillPrice = (o.AvgFillPrice*filledAbs + price*fillAbs) / (filledAbs + fillAbs)
	}
	o.FilledSize += size
	o.OpenedSize += opened
	o.ClosedSize += closed
	o.PositionSize = posSize
	o.PositionPrice = posPrice
	o.UpdatedAt = time.Now()
}

// Clone returns an immutable snapshot of the order for notification
// delivery. The resolved account is shared: it is never mutated after
// resolution.
func (o *Order) Clone() *Order {
	c := *o
	return &c
}
