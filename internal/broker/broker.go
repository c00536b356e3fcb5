// Package broker implements the order-lifecycle core of the bridge: the
// transaction dispatcher, the reconciliation of asynchronous gateway events
// into order state transitions, the position/cash ledger, and the
// one-cancels-other and parent/child order topologies.
package broker

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"quikbridge/internal/domain"
	"quikbridge/internal/quik"
	"quikbridge/internal/store"
	"quikbridge/internal/util"
)

// Config holds the trading parameters of the broker.
type Config struct {
	// Lots marks incoming position balances as expressed in lots.
	Lots bool
	// SlippageSteps is the price-step budget added to the last trade price
	// when pricing market and triggered-stop orders on derivatives.
	SlippageSteps int
	// ClientCodeForOrders overrides the client code on outgoing
	// transactions; some firms require a dedicated code for order entry.
	ClientCodeForOrders string
	// Currency is the money-limit currency code, e.g. "SUR".
	Currency string
	// SendRatePerMin caps outgoing transactions; the venue rejects logins
	// that exceed their transaction rate.
	SendRatePerMin int
}

// OrderRequest carries a caller's order intent. Size is unsigned; the side
// comes from the Buy/Sell call. Transmit must be true for plain orders;
// Transmit=false buffers the order as part of a parent/child chain.
type OrderRequest struct {
	Instrument domain.Instrument
	Size       float64
	Type       domain.OrderType
	Price      float64 // limit price, or trigger price for stop kinds
	PriceLimit float64 // limit price of a stop-limit
	TIF        domain.TimeInForce
	GoodTill   time.Time
	OCOID      int64 // transaction id of the one-cancels-other sibling
	ParentID   int64 // transaction id of the bracket parent
	Transmit   bool
	// AccountID pins the order to an explicit account; nil resolves one.
	AccountID *int
}

// Broker owns the order registry, position ledger, dependent-order graph,
// trade dedup filter, and notification queue. One mutex serializes the
// dispatcher entry points with the reconciliation loop: no two mutations of
// the registry ever run concurrently.
type Broker struct {
	log     *slog.Logger
	cfg     Config
	client  quik.Client
	journal store.Journal // optional
	limiter *util.RateLimiter

	mu          sync.Mutex
	lastTransID int64
	orders      map[int64]*domain.Order
	positions   map[domain.Instrument]*domain.Position
	ocos        map[int64]int64   // declarer -> sibling
	pcs         map[int64][]int64 // chain root -> ordered member ids
	tradeNums   map[domain.Instrument]map[int64]struct{}
	symbols     map[domain.Instrument]*quik.SymbolInfo
	notifs      []*domain.Order

	cash  float64 // last non-zero aggregates, fallback for dead terminals
	value float64
}

// New creates a Broker. The journal may be nil; journal failures never fail
// the trading path.
func New(cfg Config, client quik.Client, journal store.Journal, log *slog.Logger) *Broker {
	rate := cfg.SendRatePerMin
	if rate <= 0 {
		rate = 60
	}
	return &Broker{
		log:       log,
		cfg:       cfg,
		client:    client,
		journal:   journal,
		limiter:   util.NewRateLimiter(rate),
		orders:    make(map[int64]*domain.Order),
		positions: make(map[domain.Instrument]*domain.Position),
		ocos:      make(map[int64]int64),
		pcs:       make(map[int64][]int64),
		tradeNums: make(map[domain.Instrument]map[int64]struct{}),
		symbols:   make(map[domain.Instrument]*quik.SymbolInfo),
	}
}

// Run consumes the gateway event feed until the context is canceled. Every
// event is applied under the broker lock, strictly sequentially.
func (b *Broker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-b.client.Events():
			if !ok {
				return nil
			}
			b.mu.Lock()
			switch e := ev.(type) {
			case quik.TransReply:
				b.onTransReply(ctx, e)
			case quik.Trade:
				b.onTrade(ctx, e)
			}
			b.mu.Unlock()
		}
	}
}

// Buy places a buy order and returns its created snapshot. The returned
// order already reflects synchronous rejections.
func (b *Broker) Buy(ctx context.Context, req OrderRequest) *domain.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.createOrder(ctx, req, domain.OrderSideBuy)
	b.notify(o)
	return o.Clone()
}

// Sell places a sell order and returns its created snapshot.
func (b *Broker) Sell(ctx context.Context, req OrderRequest) *domain.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.createOrder(ctx, req, domain.OrderSideSell)
	b.notify(o)
	return o.Clone()
}

// Cancel requests cancellation of the order with the given transaction id.
// It is fire and forget: the terminal state arrives later through the
// acknowledgement path. Unknown and already-terminal orders no-op.
func (b *Broker) Cancel(ctx context.Context, transID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelOrder(ctx, transID)
}

// Order returns a snapshot of the order with the given transaction id. The
// registry never evicts, so terminal orders stay queryable.
func (b *Broker) Order(transID int64) (*domain.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[transID]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Position returns the position held in the instrument; a flat position if
// none was ever touched.
func (b *Broker) Position(in domain.Instrument) domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.positions[in]; ok {
		return *p
	}
	return domain.Position{}
}

// createOrder validates the request, registers the order and its relations,
// and transmits when the request completes a chain. Callers hold b.mu.
func (b *Broker) createOrder(ctx context.Context, req OrderRequest, side domain.OrderSide) *domain.Order {
	size := req.Size
	if side == domain.OrderSideSell {
		size = -size
	}
	b.lastTransID++
	o := &domain.Order{
		TransID:    b.lastTransID,
		Instrument: req.Instrument,
		Side:       side,
		Size:       size,
		Price:      req.Price,
		PriceLimit: req.PriceLimit,
		Type:       req.Type,
		TIF:        req.TIF,
		GoodTill:   req.GoodTill,
		Status:     domain.OrderStatusCreated,
		ParentID:   req.ParentID,
		OCOID:      req.OCOID,
		Transmit:   req.Transmit,
		CreatedAt:  time.Now(),
	}
	b.orders[o.TransID] = o

	if !o.Type.Supported() {
		b.rejectLocal(ctx, o, "unsupported order type "+o.Type.String())
		b.ocoPCCheck(ctx, o)
		return o
	}

	account := b.resolveAccount(req.Instrument.ClassCode, req.AccountID)
	if account == nil {
		b.rejectLocal(ctx, o, "account not found for trading mode "+req.Instrument.ClassCode)
		return o
	}
	o.Account = account

	si, err := b.symbolInfo(ctx, req.Instrument)
	if err != nil {
		b.rejectLocal(ctx, o, "instrument not found: "+req.Instrument.String())
		return o
	}
	o.MinPriceStep = si.MinPriceStep

	if req.OCOID != 0 {
		b.ocos[o.TransID] = req.OCOID
	}

	if !req.Transmit || req.ParentID != 0 {
		root := req.ParentID
		if root == 0 {
			root = o.TransID
		}
		if o.TransID != root {
			if _, ok := b.pcs[root]; !ok {
				b.rejectLocal(ctx, o, "parent order not found")
				return o
			}
		}
		b.pcs[root] = append(b.pcs[root], o.TransID)
	}

	if req.Transmit {
		if req.ParentID == 0 {
			b.placeOrder(ctx, o)
		} else if parent, ok := b.orders[req.ParentID]; ok {
			// The terminal child completes the chain: transmit the root.
			b.placeOrder(ctx, parent)
		}
	}
	return o
}

// resolveAccount picks the account for an order: the explicit one when it
// supports the trading mode, then the configured order-entry client code,
// then the first account supporting the mode.
func (b *Broker) resolveAccount(classCode string, explicit *int) *domain.Account {
	accounts := b.client.Accounts()
	if explicit != nil {
		for i := range accounts {
			if accounts[i].AccountID == *explicit {
				if accounts[i].SupportsClass(classCode) {
					return &accounts[i]
				}
				return nil
			}
		}
		return nil
	}
	if b.cfg.ClientCodeForOrders != "" {
		for i := range accounts {
			if accounts[i].ClientCode == b.cfg.ClientCodeForOrders && accounts[i].SupportsClass(classCode) {
				return &accounts[i]
			}
		}
	}
	for i := range accounts {
		if accounts[i].SupportsClass(classCode) {
			return &accounts[i]
		}
	}
	return nil
}

// placeOrder builds and sends the gateway transaction for an order. The
// order is marked Submitted before the send; a synchronous gateway error
// transitions it straight to Rejected.
func (b *Broker) placeOrder(ctx context.Context, o *domain.Order) {
	si, err := b.symbolInfo(ctx, o.Instrument)
	if err != nil {
		b.rejectLocal(ctx, o, "instrument not found: "+o.Instrument.String())
		return
	}
	fields, err := b.buildTransaction(ctx, o, si)
	if err != nil {
		b.log.Error("place: fail price order", "trans_id", o.TransID, "err", err)
		o.Status = domain.OrderStatusRejected
		o.RejectReason = err.Error()
		b.journalOrder(ctx, o)
		return
	}

	o.Status = domain.OrderStatusSubmitted
	transactionsSent.WithLabelValues(fields["ACTION"]).Inc()
	if err := b.sendTransaction(ctx, fields); err != nil {
		b.log.Error("place: gateway refused transaction", "trans_id", o.TransID, "instrument", o.Instrument.String(), "err", err)
		o.Status = domain.OrderStatusRejected
		o.RejectReason = err.Error()
	}
	b.journalOrder(ctx, o)
}

// buildTransaction renders the order as the gateway's string-field
// transaction record.
func (b *Broker) buildTransaction(ctx context.Context, o *domain.Order, si *quik.SymbolInfo) (map[string]string, error) {
	quantity := o.Size
	if !si.Derivative() {
		// Non-derivative quantities travel in lots.
		quantity = quik.SizeToLots(si, o.Size)
	}
	if quantity < 0 {
		quantity = -quantity
	}

	clientCode := o.Account.ClientCode
	if b.cfg.ClientCodeForOrders != "" {
		clientCode = b.cfg.ClientCodeForOrders
	}
	operation := "S"
	if o.IsBuy() {
		operation = "B"
	}
	action := "NEW_ORDER"
	if o.Type.IsStop() {
		action = "NEW_STOP_ORDER"
	}

	fields := map[string]string{
		"TRANS_ID":    strconv.FormatInt(o.TransID, 10),
		"CLIENT_CODE": clientCode,
		"ACCOUNT":     o.Account.TradeAccountID,
		"CLASSCODE":   o.Instrument.ClassCode,
		"SECCODE":     o.Instrument.SecCode,
		"OPERATION":   operation,
		"QUANTITY":    formatNum(quantity),
		"ACTION":      action,
	}

	slippage := si.MinPriceStep * float64(b.cfg.SlippageSteps)

	switch o.Type {
	case domain.OrderTypeMarket:
		fields["TYPE"] = "M"
		marketPrice, err := b.marketPrice(ctx, o, si, slippage)
		if err != nil {
			return nil, err
		}
		fields["PRICE"] = formatNum(marketPrice)

	case domain.OrderTypeLimit:
		fields["TYPE"] = "L"
		fields["PRICE"] = formatNum(toVenuePrice(si, o.Price))

	case domain.OrderTypeStop:
		stopPrice := toVenuePrice(si, o.Price)
		fields["STOPPRICE"] = formatNum(stopPrice)
		// Once triggered the stop executes market-equivalent, so the price
		// field carries the same slippage-bounded sentinel as market orders.
		marketPrice := 0.0
		if si.Derivative() {
			if o.IsBuy() {
				marketPrice = quik.ValidPrice(si, stopPrice+slippage)
			} else {
				marketPrice = quik.ValidPrice(si, stopPrice-slippage)
			}
		}
		fields["PRICE"] = formatNum(marketPrice)

	case domain.OrderTypeStopLimit:
		fields["STOPPRICE"] = formatNum(toVenuePrice(si, o.Price))
		fields["PRICE"] = formatNum(toVenuePrice(si, o.PriceLimit))
	}

	if o.Type.IsStop() {
		fields["EXPIRY_DATE"] = expiryDate(o)
	}
	return fields, nil
}

// marketPrice returns the price field of a market order: the zero sentinel
// for standard instruments, a slippage-bounded synthetic limit off the last
// trade for derivatives, which the venue requires.
func (b *Broker) marketPrice(ctx context.Context, o *domain.Order, si *quik.SymbolInfo, slippage float64) (float64, error) {
	if !si.Derivative() {
		return 0, nil
	}
	last, err := b.client.LastPrice(ctx, si.ClassCode, si.SecCode)
	if err != nil {
		return 0, err
	}
	if o.IsBuy() {
		return quik.ValidPrice(si, last+slippage), nil
	}
	return quik.ValidPrice(si, last-slippage), nil
}

// cancelOrder builds and sends the cancellation transaction. Callers hold
// b.mu. Local state is left untouched: the Canceled transition arrives via
// the acknowledgement path.
func (b *Broker) cancelOrder(ctx context.Context, transID int64) {
	o, ok := b.orders[transID]
	if !ok || !o.Alive() {
		return
	}
	if o.Status == domain.OrderStatusCreated {
		// Never transmitted: nothing to kill at the venue.
		return
	}
	// A stop order that has not triggered into a live limit order must be
	// killed by its stop key.
	stopPhase := false
	if o.Type.IsStop() {
		if _, err := b.client.OrderByNumber(ctx, o.OrderNum); err != nil {
			stopPhase = true
		}
	}
	fields := map[string]string{
		"TRANS_ID":  strconv.FormatInt(o.TransID, 10),
		"CLASSCODE": o.Instrument.ClassCode,
		"SECCODE":   o.Instrument.SecCode,
	}
	if stopPhase {
		fields["ACTION"] = "KILL_STOP_ORDER"
		fields["STOP_ORDER_KEY"] = strconv.FormatInt(o.OrderNum, 10)
	} else {
		fields["ACTION"] = "KILL_ORDER"
		fields["ORDER_KEY"] = strconv.FormatInt(o.OrderNum, 10)
	}
	transactionsSent.WithLabelValues(fields["ACTION"]).Inc()
	if err := b.sendTransaction(ctx, fields); err != nil {
		b.log.Error("cancel: fail send transaction", "trans_id", o.TransID, "err", err)
	}
}

func (b *Broker) sendTransaction(ctx context.Context, fields map[string]string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	return b.client.SendTransaction(ctx, fields)
}

// rejectLocal terminates an order before any gateway round trip.
func (b *Broker) rejectLocal(ctx context.Context, o *domain.Order, reason string) {
	b.log.Error("order rejected locally", "trans_id", o.TransID, "instrument", o.Instrument.String(), "reason", reason)
	o.Status = domain.OrderStatusRejected
	o.RejectReason = reason
	localRejects.Inc()
	b.journalOrder(ctx, o)
}

// symbolInfo resolves and caches instrument metadata.
func (b *Broker) symbolInfo(ctx context.Context, in domain.Instrument) (*quik.SymbolInfo, error) {
	if si, ok := b.symbols[in]; ok {
		return si, nil
	}
	si, err := b.client.SymbolInfo(ctx, in.ClassCode, in.SecCode)
	if err != nil {
		return nil, err
	}
	b.symbols[in] = si
	return si, nil
}

func (b *Broker) journalOrder(ctx context.Context, o *domain.Order) {
	if b.journal == nil {
		return
	}
	if err := b.journal.RecordOrder(ctx, o); err != nil {
		b.log.Warn("journal: fail record order", "trans_id", o.TransID, "err", err)
	}
}

// toVenuePrice converts a price to the venue representation: derivatives
// keep native prices rounded to a valid step, everything else is rescaled.
func toVenuePrice(si *quik.SymbolInfo, price float64) float64 {
	if si.Derivative() {
		return quik.ValidPrice(si, price)
	}
	return quik.ToQuikPrice(si, price)
}

// expiryDate renders the stop-order expiry: good-till-canceled by default,
// the current session for day orders, an explicit date otherwise.
func expiryDate(o *domain.Order) string {
	switch o.TIF {
	case domain.TimeInForceDay:
		return "TODAY"
	case domain.TimeInForceDate:
		if !o.GoodTill.IsZero() {
			return o.GoodTill.Format("20060102")
		}
	}
	return "GTC"
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
