package quik

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pebbe/zmq4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"quikbridge/internal/domain"
	"quikbridge/internal/util"
)

var gatewayRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "quik_gateway_requests_total",
	Help: "Gateway requests by command.",
}, []string{"cmd"})

var gatewayEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "quik_gateway_events_total",
	Help: "Gateway callback events by kind.",
}, []string{"kind"})

func init() {
	prometheus.MustRegister(gatewayRequests, gatewayEvents)
}

// GatewayError is a submission-level error reported synchronously by the
// terminal's scripting layer on a transaction.
type GatewayError struct {
	Cmd    string
	Detail string
}

func (e *GatewayError) Error() string {
	return "quik: gateway error on " + e.Cmd + ": " + e.Detail
}

// Compile-time interface check.
var _ Client = (*ZMQClient)(nil)

// ZMQClient talks to the bridge over two zmq sockets: a REQ socket for
// synchronous calls and a SUB socket for the callback feed. Accounts and the
// class list are fetched once at dial time.
type ZMQClient struct {
	log   *slog.Logger
	token string

	reqMx sync.Mutex
	req   *zmq4.Socket
	sub   *zmq4.Socket

	nextID   uint64
	accounts []domain.Account
	classes  map[string]struct{}

	events chan Event
	done   chan struct{}
}

// DialZMQ connects both sockets, loads accounts and trading classes, and
// starts the callback receive loop. The initial queries are retried because
// the terminal may still be warming up when the bridge starts.
func DialZMQ(ctx context.Context, requestsAddr, eventsAddr, token string, log *slog.Logger) (*ZMQClient, error) {
	req, err := zmq4.NewSocket(zmq4.REQ)
	if err != nil {
		return nil, errors.WithMessage(err, "quik: fail create request socket")
	}
	if err = req.SetRcvtimeo(30 * time.Second); err != nil {
		return nil, errors.WithMessage(err, "quik: fail set request timeout")
	}
	if err = req.Connect(requestsAddr); err != nil {
		return nil, errors.WithMessage(err, "quik: fail connect request socket "+requestsAddr)
	}

	sub, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, errors.WithMessage(err, "quik: fail create event socket")
	}
	if err = sub.SetSubscribe(""); err != nil {
		return nil, errors.WithMessage(err, "quik: fail subscribe events")
	}
	if err = sub.SetRcvtimeo(time.Second); err != nil {
		return nil, errors.WithMessage(err, "quik: fail set event timeout")
	}
	if err = sub.Connect(eventsAddr); err != nil {
		return nil, errors.WithMessage(err, "quik: fail connect event socket "+eventsAddr)
	}

	c := &ZMQClient{
		log:     log,
		token:   token,
		req:     req,
		sub:     sub,
		classes: make(map[string]struct{}),
		events:  make(chan Event, 1024),
		done:    make(chan struct{}),
	}

	err = util.Retry(ctx, 5, time.Second, func() error {
		return c.loadReference(ctx)
	})
	if err != nil {
		return nil, errors.WithMessage(err, "quik: fail load accounts and classes")
	}

	go c.receiveLoop()
	return c, nil
}

// Close stops the receive loop and closes both sockets.
func (c *ZMQClient) Close() error {
	close(c.done)
	errReq := c.req.Close()
	errSub := c.sub.Close()
	if errReq != nil {
		return errReq
	}
	return errSub
}

func (c *ZMQClient) loadReference(ctx context.Context) error {
	var accounts []wireAccount
	if err := c.call(ctx, "getTradeAccounts", nil, &accounts); err != nil {
		return err
	}
	c.accounts = c.accounts[:0]
	for _, a := range accounts {
		c.accounts = append(c.accounts, a.toAccount())
	}

	var classes []string
	if err := c.call(ctx, "getClassesList", nil, &classes); err != nil {
		return err
	}
	for _, cls := range classes {
		c.classes[cls] = struct{}{}
	}
	c.log.Info("quik: reference loaded", "accounts", len(c.accounts), "classes", len(c.classes))
	return nil
}

func (c *ZMQClient) call(ctx context.Context, cmd string, data, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := jsoniter.Marshal(wireRequest{
		ID:    atomic.AddUint64(&c.nextID, 1),
		Cmd:   cmd,
		Data:  data,
		Token: c.token,
	})
	if err != nil {
		return errors.WithMessage(err, "quik: fail marshal "+cmd)
	}
	gatewayRequests.WithLabelValues(cmd).Inc()

	c.reqMx.Lock()
	defer c.reqMx.Unlock()
	if _, err = c.req.SendBytes(payload, 0); err != nil {
		return errors.WithMessage(err, "quik: fail send "+cmd)
	}
	reply, err := c.req.RecvBytes(0)
	if err != nil {
		return errors.WithMessage(err, "quik: fail receive reply for "+cmd)
	}

	var resp wireResponse
	if err = jsoniter.Unmarshal(reply, &resp); err != nil {
		return errors.WithMessage(err, "quik: fail parse reply for "+cmd)
	}
	if resp.Cmd == "lua_transaction_error" || resp.LuaError != "" {
		return &GatewayError{Cmd: cmd, Detail: resp.LuaError}
	}
	if out == nil {
		return nil
	}
	if isNullData(resp.Data) {
		return ErrNotFound
	}
	if err = jsoniter.Unmarshal(resp.Data, out); err != nil {
		return errors.WithMessage(err, "quik: fail parse data for "+cmd)
	}
	return nil
}

func (c *ZMQClient) receiveLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}
		frame, err := c.sub.RecvBytes(0)
		if err != nil {
			// Receive timeout: loop back to check for shutdown.
			continue
		}
		ev, err := decodeEvent(frame)
		if err != nil {
			c.log.Error("quik: bad callback frame", "err", err)
			continue
		}
		if ev == nil {
			continue
		}
		switch ev.(type) {
		case TransReply:
			gatewayEvents.WithLabelValues("trans_reply").Inc()
		case Trade:
			gatewayEvents.WithLabelValues("trade").Inc()
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

// Accounts returns the account list loaded at dial time.
func (c *ZMQClient) Accounts() []domain.Account {
	return c.accounts
}

// CheckInstrument verifies the class code is among the terminal's trading
// classes and the symbol resolves within it.
func (c *ZMQClient) CheckInstrument(ctx context.Context, classCode, secCode string) error {
	if _, ok := c.classes[classCode]; !ok {
		return errors.Errorf("quik: trading class %s not available on this terminal", classCode)
	}
	if _, err := c.SymbolInfo(ctx, classCode, secCode); err != nil {
		return errors.WithMessagef(err, "quik: symbol %s not traded in class %s", secCode, classCode)
	}
	return nil
}

// SymbolInfo resolves tradable metadata, or ErrNotFound.
func (c *ZMQClient) SymbolInfo(ctx context.Context, classCode, secCode string) (*SymbolInfo, error) {
	var w wireSymbolInfo
	err := c.call(ctx, "getSymbolInfo", wireInstrument{ClassCode: classCode, SecCode: secCode}, &w)
	if err != nil {
		return nil, err
	}
	return w.toSymbolInfo(), nil
}

// LastPrice returns the venue-native last trade price.
func (c *ZMQClient) LastPrice(ctx context.Context, classCode, secCode string) (float64, error) {
	return c.Param(ctx, classCode, secCode, "LAST")
}

// Param returns a numeric row of the current trading table.
func (c *ZMQClient) Param(ctx context.Context, classCode, secCode, param string) (float64, error) {
	var w wireParamValue
	err := c.call(ctx, "getParamEx", wireParamRequest{ClassCode: classCode, SecCode: secCode, Param: param}, &w)
	if err != nil {
		return 0, err
	}
	return w.ParamValue.Float64()
}

func (c *ZMQClient) MoneyLimits(ctx context.Context) ([]MoneyLimit, error) {
	var rows []wireMoneyLimit
	if err := c.call(ctx, "getMoneyLimits", nil, &rows); err != nil {
		return nil, err
	}
	limits := make([]MoneyLimit, 0, len(rows))
	for _, r := range rows {
		bal, _ := r.CurrentBal.Float64()
		limits = append(limits, MoneyLimit{
			ClientCode: r.ClientCode,
			FirmID:     r.FirmID,
			Currency:   r.Currency,
			LimitKind:  r.LimitKind,
			CurrentBal: bal,
		})
	}
	return limits, nil
}

func (c *ZMQClient) FuturesLimit(ctx context.Context, firmID, tradeAccountID string, limitType int, currency string) (*FuturesLimit, error) {
	data := map[string]interface{}{
		"firmid":     firmID,
		"trdaccid":   tradeAccountID,
		"limit_type": limitType,
		"currcode":   currency,
	}
	var w wireFuturesLimit
	if err := c.call(ctx, "getFuturesLimit", data, &w); err != nil {
		return nil, err
	}
	limit := &FuturesLimit{}
	limit.OpenPosLimit, _ = w.OpenPosLimit.Float64()
	limit.VarMargin, _ = w.VarMargin.Float64()
	limit.AccruedInt, _ = w.AccruedInt.Float64()
	return limit, nil
}

func (c *ZMQClient) FuturesHoldings(ctx context.Context) ([]FuturesHolding, error) {
	var rows []wireFuturesHolding
	if err := c.call(ctx, "getFuturesHoldings", nil, &rows); err != nil {
		return nil, err
	}
	holdings := make([]FuturesHolding, 0, len(rows))
	for _, r := range rows {
		net, _ := r.TotalNet.Float64()
		price, _ := r.AvgPosPrice.Float64()
		holdings = append(holdings, FuturesHolding{SecCode: r.SecCode, TotalNet: net, AvgPosPrice: price})
	}
	return holdings, nil
}

func (c *ZMQClient) DepoLimits(ctx context.Context) ([]DepoLimit, error) {
	var rows []wireDepoLimit
	if err := c.call(ctx, "getDepoLimits", nil, &rows); err != nil {
		return nil, err
	}
	limits := make([]DepoLimit, 0, len(rows))
	for _, r := range rows {
		bal, _ := r.CurrentBal.Float64()
		price, _ := r.AvgPrice.Float64()
		limits = append(limits, DepoLimit{
			SecCode:    r.SecCode,
			ClientCode: r.ClientCode,
			FirmID:     r.FirmID,
			LimitKind:  r.LimitKind,
			CurrentBal: bal,
			AvgPrice:   price,
		})
	}
	return limits, nil
}

// OrderByNumber returns the live limit order, or ErrNotFound when the
// number does not (or not yet) correspond to a limit order on the book.
func (c *ZMQClient) OrderByNumber(ctx context.Context, orderNum int64) (*GatewayOrder, error) {
	data := map[string]string{"order_num": strconv.FormatInt(orderNum, 10)}
	var w wireGatewayOrder
	if err := c.call(ctx, "getOrderByNumber", data, &w); err != nil {
		return nil, err
	}
	order := &GatewayOrder{OrderNum: w.OrderNum, Flags: w.Flags}
	order.Balance, _ = w.Balance.Float64()
	return order, nil
}

// SendTransaction submits one transaction; all fields are strings by
// contract. A *GatewayError means the terminal refused the transaction at
// submission time.
func (c *ZMQClient) SendTransaction(ctx context.Context, fields map[string]string) error {
	return c.call(ctx, "sendTransaction", fields, nil)
}

// Events is the asynchronous callback feed.
func (c *ZMQClient) Events() <-chan Event {
	return c.events
}
