package broker

import (
	"context"
	"math"

	"quikbridge/internal/domain"
	"quikbridge/internal/quik"
)

// Cash aggregates free cash across accounts, or for one account when
// accountID is given. Derivative accounts contribute their margin-style
// balance (open-position limit + variation margin + accrued interest);
// cash accounts contribute the balance of their highest limit tier. The
// last non-zero total is kept as a fallback for moments when the terminal
// returns nothing.
func (b *Broker) Cash(ctx context.Context, accountID *int) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	accounts := b.client.Accounts()
	if accountID != nil {
		found := false
		for i := range accounts {
			if accounts[i].AccountID == *accountID {
				found = true
				break
			}
		}
		if !found {
			b.log.Error("cash: account not found", "account_id", *accountID)
			return 0
		}
	}

	var moneyLimits []quik.MoneyLimit
	var limitsErr error
	needMoneyLimits := false
	for i := range accounts {
		if !accounts[i].Futures {
			needMoneyLimits = true
			break
		}
	}
	if needMoneyLimits {
		moneyLimits, limitsErr = b.client.MoneyLimits(ctx)
		if limitsErr != nil {
			b.log.Warn("cash: fail read money limits", "err", limitsErr)
		}
	}

	var cash float64
	for i := range accounts {
		account := &accounts[i]
		if accountID != nil && account.AccountID != *accountID {
			continue
		}
		if account.Futures {
			limit, err := b.client.FuturesLimit(ctx, account.FirmID, account.TradeAccountID, 0, b.cfg.Currency)
			if err != nil {
				b.log.Warn("cash: fail read futures limit", "firm", account.FirmID, "err", err)
				continue
			}
			cash += limit.OpenPosLimit + limit.VarMargin + limit.AccruedInt
			continue
		}
		cash += bestMoneyLimit(moneyLimits, account, b.cfg.Currency)
	}

	if cash == 0 {
		return b.cash
	}
	if accountID == nil {
		b.cash = cash
	}
	return cash
}

// bestMoneyLimit picks the balance of the highest limit_kind row matching
// the account and currency.
func bestMoneyLimit(limits []quik.MoneyLimit, account *domain.Account, currency string) float64 {
	best := -1
	var bal float64
	for _, ml := range limits {
		if ml.ClientCode != account.ClientCode || ml.FirmID != account.FirmID || ml.Currency != currency {
			continue
		}
		if ml.LimitKind > best {
			best = ml.LimitKind
			bal = ml.CurrentBal
		}
	}
	return bal
}

// Value sums abs(size) x last trade price across held positions, optionally
// filtered by an instrument set and/or an account. Like Cash it falls back
// to the last non-zero unfiltered total when live data is unavailable.
func (b *Broker) Value(ctx context.Context, instruments []domain.Instrument, accountID *int) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	filter := make(map[domain.Instrument]struct{}, len(instruments))
	for _, in := range instruments {
		filter[in] = struct{}{}
	}

	var value float64
	for in, pos := range b.positions {
		if len(filter) > 0 {
			if _, ok := filter[in]; !ok {
				continue
			}
		}
		if accountID != nil {
			account := b.resolveAccount(in.ClassCode, nil)
			if account == nil || account.AccountID != *accountID {
				continue
			}
		}
		last, err := b.client.LastPrice(ctx, in.ClassCode, in.SecCode)
		if err != nil {
			b.log.Warn("value: fail read last price", "instrument", in.String(), "err", err)
			continue
		}
		if in.ClassCode != quik.FuturesClassCode {
			if si, err := b.symbolInfo(ctx, in); err == nil {
				last = quik.FromQuikPrice(si, last)
			}
		}
		value += math.Abs(pos.Size) * last
	}

	if value == 0 {
		return b.value
	}
	if len(instruments) == 0 && accountID == nil {
		b.value = value
	}
	return value
}
