// Package quik defines the contract with the QUIK terminal gateway: the
// synchronous query/transaction surface, the asynchronous callback events,
// and the price/lot scale conversions at the venue boundary.
package quik

import (
	"context"

	"github.com/pkg/errors"

	"quikbridge/internal/domain"
)

// FuturesClassCode is the trading mode of the derivatives board. Instruments
// in this class trade in underlying units at venue-native prices; everything
// else trades in lots at scaled prices.
const FuturesClassCode = "SPBFUT"

// ErrNotFound is returned by lookups when the gateway knows nothing about
// the requested entity.
var ErrNotFound = errors.New("quik: not found")

// SymbolInfo is the tradable metadata the dispatcher needs.
type SymbolInfo struct {
	ClassCode    string
	SecCode      string
	MinPriceStep float64
	LotSize      float64
	// PriceScale converts one venue price unit into currency per underlying
	// unit: 1 for ordinary equities, face_value/100 for bonds quoted in
	// percent. Derivative prices are used as-is.
	PriceScale float64
}

// Derivative reports whether the instrument trades on the derivatives board.
func (si *SymbolInfo) Derivative() bool {
	return si.ClassCode == FuturesClassCode
}

// MoneyLimit is one cash balance row of a non-derivative account.
type MoneyLimit struct {
	ClientCode string
	FirmID     string
	Currency   string
	LimitKind  int
	CurrentBal float64
}

// FuturesLimit is the money limit of a derivative account.
type FuturesLimit struct {
	OpenPosLimit float64 // cbplimit
	VarMargin    float64
	AccruedInt   float64
}

// FuturesHolding is one open derivatives position reported by the terminal.
type FuturesHolding struct {
	SecCode     string
	TotalNet    float64
	AvgPosPrice float64
}

// DepoLimit is one security balance row of a non-derivative account.
type DepoLimit struct {
	SecCode    string
	ClientCode string
	FirmID     string
	LimitKind  int
	CurrentBal float64
	AvgPrice   float64 // wa_position_price, venue-native
}

// GatewayOrder is the venue's current view of a working limit order.
type GatewayOrder struct {
	OrderNum int64
	Balance  float64
	Flags    uint32
}

// Client is the synchronous surface of the gateway plus its asynchronous
// callback feed. All transaction fields cross the boundary as strings by
// contract; the error returned by SendTransaction covers both transport
// failures and submission-level gateway errors.
type Client interface {
	// Accounts returns the account list known to the terminal, in the
	// terminal's order.
	Accounts() []domain.Account

	// CheckInstrument verifies the trading-mode/symbol pair exists. A
	// failure is fatal to the calling session, not retried.
	CheckInstrument(ctx context.Context, classCode, secCode string) error

	// SymbolInfo resolves tradable metadata, or ErrNotFound.
	SymbolInfo(ctx context.Context, classCode, secCode string) (*SymbolInfo, error)

	// LastPrice returns the venue-native last trade price.
	LastPrice(ctx context.Context, classCode, secCode string) (float64, error)

	// Param returns a numeric row of the current trading table, e.g.
	// "STEPPRICE" or "BUYDEPO".
	Param(ctx context.Context, classCode, secCode, param string) (float64, error)

	MoneyLimits(ctx context.Context) ([]MoneyLimit, error)
	FuturesLimit(ctx context.Context, firmID, tradeAccountID string, limitType int, currency string) (*FuturesLimit, error)
	FuturesHoldings(ctx context.Context) ([]FuturesHolding, error)
	DepoLimits(ctx context.Context) ([]DepoLimit, error)

	// OrderByNumber returns the live limit order with the given exchange
	// number, or ErrNotFound when no such limit order is on the book (for a
	// stop order that means it has not triggered yet).
	OrderByNumber(ctx context.Context, orderNum int64) (*GatewayOrder, error)

	// SendTransaction submits one gateway transaction.
	SendTransaction(ctx context.Context, fields map[string]string) error

	// Events is the asynchronous callback feed. The consumer must process
	// events strictly sequentially.
	Events() <-chan Event
}
