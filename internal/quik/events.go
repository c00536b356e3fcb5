package quik

// tradeSellFlag is bit 2 of the trade flags: set for sell-side trades.
const tradeSellFlag = 0b100

// Event is one asynchronous callback pushed by the gateway. Exactly
// TransReply and Trade implement it.
type Event interface {
	event()
}

// TransReply is the acknowledgement of a client transaction: a new-order
// registration, a cancellation, or a failure. The venue carries the outcome
// as a numeric status plus free-form result text.
type TransReply struct {
	TransID   int64
	OrderNum  int64
	Status    int
	ResultMsg string
}

func (TransReply) event() {}

// Trade is one trade report. Reports may be redelivered; TradeNum
// deduplicates them. Qty is always positive and expressed in lots for
// non-derivative instruments.
type Trade struct {
	TradeNum  int64
	OrderNum  int64
	TransID   int64
	ClassCode string
	SecCode   string
	Qty       float64
	Flags     uint32
	Price     float64
}

func (Trade) event() {}

// IsSell reports whether the trade was on the sell side.
func (t Trade) IsSell() bool {
	return t.Flags&tradeSellFlag == tradeSellFlag
}
