// Package domain defines the core order, position, and account types shared
// by the dispatcher, reconciliation handler, and journal.
package domain

import (
	"fmt"
	"strings"
)

// Instrument identifies a tradable as a trading-mode (class code) plus
// symbol (sec code) pair, e.g. "TQBR.SBER" or "SPBFUT.SiZ5".
type Instrument struct {
	ClassCode string
	SecCode   string
}

// ParseInstrument splits a "CLASS.SEC" name into an Instrument.
func ParseInstrument(name string) (Instrument, error) {
	class, sec, ok := strings.Cut(name, ".")
	if !ok || class == "" || sec == "" {
		return Instrument{}, fmt.Errorf("instrument name must be in CLASS.SEC format, got %q", name)
	}
	return Instrument{ClassCode: class, SecCode: sec}, nil
}

func (i Instrument) String() string {
	return i.ClassCode + "." + i.SecCode
}

// Account is one client-code/firm/trade-account triple known to the
// terminal. ClassCodes lists the trading modes the account may trade.
type Account struct {
	AccountID      int
	ClientCode     string
	FirmID         string
	TradeAccountID string
	ClassCodes     []string
	Futures        bool
}

// SupportsClass reports whether the account may trade the given class code.
func (a Account) SupportsClass(classCode string) bool {
	for _, c := range a.ClassCodes {
		if c == classCode {
			return true
		}
	}
	return false
}

// OrderSide is the direction of an order.
type OrderSide uint8

const (
	OrderSideBuy OrderSide = iota
	OrderSideSell
)

func (s OrderSide) String() string {
	if s == OrderSideBuy {
		return "buy"
	}
	return "sell"
}

// OrderType is the execution kind of an order. Only Market, Limit, Stop and
// StopLimit are supported by the dispatcher; the remaining kinds exist so a
// request carrying one can be rejected explicitly.
type OrderType uint8

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeStop
	OrderTypeStopLimit
	OrderTypeClose
	OrderTypeStopTrail
	OrderTypeStopTrailLimit
	OrderTypeHistorical
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	case OrderTypeStop:
		return "stop"
	case OrderTypeStopLimit:
		return "stopLimit"
	case OrderTypeClose:
		return "close"
	case OrderTypeStopTrail:
		return "stopTrail"
	case OrderTypeStopTrailLimit:
		return "stopTrailLimit"
	case OrderTypeHistorical:
		return "historical"
	}
	return fmt.Sprintf("orderType(%d)", uint8(t))
}

// Supported reports whether the dispatcher can translate this kind into a
// gateway transaction.
func (t OrderType) Supported() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeStopLimit:
		return true
	}
	return false
}

// IsStop reports whether the order kind is placed as a stop order at the
// venue (NEW_STOP_ORDER rather than NEW_ORDER).
func (t OrderType) IsStop() bool {
	return t == OrderTypeStop || t == OrderTypeStopLimit
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus uint8

const (
	OrderStatusCreated OrderStatus = iota
	OrderStatusSubmitted
	OrderStatusAccepted
	OrderStatusPartial
	OrderStatusCompleted
	OrderStatusCanceled
	OrderStatusRejected
	OrderStatusMargin
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusCreated:
		return "created"
	case OrderStatusSubmitted:
		return "submitted"
	case OrderStatusAccepted:
		return "accepted"
	case OrderStatusPartial:
		return "partial"
	case OrderStatusCompleted:
		return "completed"
	case OrderStatusCanceled:
		return "canceled"
	case OrderStatusRejected:
		return "rejected"
	case OrderStatusMargin:
		return "margin"
	}
	return fmt.Sprintf("orderStatus(%d)", uint8(s))
}

// Terminal reports whether no further transitions can occur.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCanceled, OrderStatusRejected, OrderStatusMargin:
		return true
	}
	return false
}

// TimeInForce controls how long a stop order stays working at the venue.
type TimeInForce uint8

const (
	// TimeInForceGTC keeps the order until it is explicitly canceled.
	TimeInForceGTC TimeInForce = iota
	// TimeInForceDay keeps the order until the end of the trading session.
	TimeInForceDay
	// TimeInForceDate keeps the order until the date in Order.GoodTill.
	TimeInForceDate
)

func (t TimeInForce) String() string {
	switch t {
	case TimeInForceGTC:
		return "gtc"
	case TimeInForceDay:
		return "day"
	case TimeInForceDate:
		return "date"
	}
	return fmt.Sprintf("timeInForce(%d)", uint8(t))
}
