package quik

import (
	"bytes"
	"encoding/json"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"quikbridge/internal/domain"
)

// Wire frames of the bridge protocol. Every frame is one JSON object; the
// request/response pair travels over the REQ socket, callbacks arrive on the
// SUB socket as {"cmd": ..., "data": ...}.

type wireRequest struct {
	ID    uint64      `json:"id"`
	Cmd   string      `json:"cmd"`
	Data  interface{} `json:"data,omitempty"`
	Token string      `json:"token,omitempty"`
}

type wireResponse struct {
	ID       uint64              `json:"id"`
	Cmd      string              `json:"cmd"`
	Data     jsoniter.RawMessage `json:"data,omitempty"`
	LuaError string              `json:"lua_error,omitempty"`
}

type wireEvent struct {
	Cmd  string              `json:"cmd"`
	Data jsoniter.RawMessage `json:"data"`
}

type wireInstrument struct {
	ClassCode string `json:"class_code"`
	SecCode   string `json:"sec_code"`
}

type wireParamRequest struct {
	ClassCode string `json:"class_code"`
	SecCode   string `json:"sec_code"`
	Param     string `json:"param"`
}

type wireParamValue struct {
	ParamValue json.Number `json:"param_value"`
}

type wireSymbolInfo struct {
	ClassCode    string      `json:"class_code"`
	SecCode      string      `json:"sec_code"`
	MinPriceStep json.Number `json:"min_price_step"`
	LotSize      json.Number `json:"lot_size"`
	PriceScale   json.Number `json:"price_scale"`
}

func (w *wireSymbolInfo) toSymbolInfo() *SymbolInfo {
	si := &SymbolInfo{ClassCode: w.ClassCode, SecCode: w.SecCode, PriceScale: 1}
	si.MinPriceStep, _ = w.MinPriceStep.Float64()
	si.LotSize, _ = w.LotSize.Float64()
	if v, err := w.PriceScale.Float64(); err == nil && v != 0 {
		si.PriceScale = v
	}
	return si
}

type wireAccount struct {
	AccountID      int      `json:"account_id"`
	ClientCode     string   `json:"client_code"`
	FirmID         string   `json:"firmid"`
	TradeAccountID string   `json:"trade_account_id"`
	ClassCodes     []string `json:"class_codes"`
	Futures        bool     `json:"futures"`
}

func (w *wireAccount) toAccount() domain.Account {
	return domain.Account{
		AccountID:      w.AccountID,
		ClientCode:     w.ClientCode,
		FirmID:         w.FirmID,
		TradeAccountID: w.TradeAccountID,
		ClassCodes:     w.ClassCodes,
		Futures:        w.Futures,
	}
}

type wireMoneyLimit struct {
	ClientCode string      `json:"client_code"`
	FirmID     string      `json:"firmid"`
	Currency   string      `json:"currcode"`
	LimitKind  int         `json:"limit_kind"`
	CurrentBal json.Number `json:"currentbal"`
}

type wireFuturesLimit struct {
	OpenPosLimit json.Number `json:"cbplimit"`
	VarMargin    json.Number `json:"varmargin"`
	AccruedInt   json.Number `json:"accruedint"`
}

type wireFuturesHolding struct {
	SecCode     string      `json:"sec_code"`
	TotalNet    json.Number `json:"totalnet"`
	AvgPosPrice json.Number `json:"avrposnprice"`
}

type wireDepoLimit struct {
	SecCode    string      `json:"sec_code"`
	ClientCode string      `json:"client_code"`
	FirmID     string      `json:"firmid"`
	LimitKind  int         `json:"limit_kind"`
	CurrentBal json.Number `json:"currentbal"`
	AvgPrice   json.Number `json:"wa_position_price"`
}

type wireGatewayOrder struct {
	OrderNum int64       `json:"order_num"`
	Balance  json.Number `json:"balance"`
	Flags    uint32      `json:"flags"`
}

type wireTransReply struct {
	TransID   int64  `json:"trans_id"`
	OrderNum  int64  `json:"order_num"`
	Status    int    `json:"status"`
	ResultMsg string `json:"result_msg"`
}

type wireTrade struct {
	TradeNum  int64       `json:"trade_num"`
	OrderNum  int64       `json:"order_num"`
	TransID   int64       `json:"trans_id"`
	ClassCode string      `json:"class_code"`
	SecCode   string      `json:"sec_code"`
	Qty       json.Number `json:"qty"`
	Flags     uint32      `json:"flags"`
	Price     json.Number `json:"price"`
}

// decodeEvent parses one callback frame into a typed Event. Frames the
// bridge does not care about (connection status, param updates) decode to
// (nil, nil).
func decodeEvent(frame []byte) (Event, error) {
	var ev wireEvent
	if err := jsoniter.Unmarshal(frame, &ev); err != nil {
		return nil, errors.WithMessage(err, "quik: fail parse callback frame")
	}
	switch strings.ToLower(ev.Cmd) {
	case "ontransreply":
		var w wireTransReply
		if err := jsoniter.Unmarshal(ev.Data, &w); err != nil {
			return nil, errors.WithMessage(err, "quik: fail parse OnTransReply")
		}
		return TransReply{
			TransID:   w.TransID,
			OrderNum:  w.OrderNum,
			Status:    w.Status,
			ResultMsg: w.ResultMsg,
		}, nil
	case "ontrade":
		var w wireTrade
		if err := jsoniter.Unmarshal(ev.Data, &w); err != nil {
			return nil, errors.WithMessage(err, "quik: fail parse OnTrade")
		}
		qty, _ := w.Qty.Float64()
		price, _ := w.Price.Float64()
		return Trade{
			TradeNum:  w.TradeNum,
			OrderNum:  w.OrderNum,
			TransID:   w.TransID,
			ClassCode: w.ClassCode,
			SecCode:   w.SecCode,
			Qty:       qty,
			Flags:     w.Flags,
			Price:     price,
		}, nil
	}
	return nil, nil
}

// isNullData reports whether a response data payload is empty or the JSON
// null/number the gateway uses for "nothing found".
func isNullData(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	return trimmed[0] != '{' && trimmed[0] != '['
}
