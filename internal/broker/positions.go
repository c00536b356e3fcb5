package broker

import (
	"context"

	"github.com/pkg/errors"

	"quikbridge/internal/domain"
	"quikbridge/internal/quik"
)

// LoadPositions seeds the position ledger from the terminal's current
// holdings: futures holdings for derivative accounts, depo limits for the
// rest. Called once at startup so the ledger starts from the live book
// instead of flat.
func (b *Broker) LoadPositions(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, account := range b.client.Accounts() {
		if account.Futures {
			if err := b.loadFuturesPositions(ctx); err != nil {
				return err
			}
			continue
		}
		if err := b.loadDepoPositions(ctx, account); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broker) loadFuturesPositions(ctx context.Context) error {
	holdings, err := b.client.FuturesHoldings(ctx)
	if err != nil {
		if errors.Is(err, quik.ErrNotFound) {
			return nil
		}
		return errors.WithMessage(err, "fail read futures holdings")
	}
	for _, fh := range holdings {
		if fh.TotalNet == 0 {
			continue
		}
		in := domain.Instrument{ClassCode: quik.FuturesClassCode, SecCode: fh.SecCode}
		size := fh.TotalNet
		if b.cfg.Lots {
			if si, err := b.symbolInfo(ctx, in); err == nil {
				size = quik.LotsToSize(si, size)
			}
		}
		b.positions[in] = &domain.Position{Size: size, Price: fh.AvgPosPrice}
		b.log.Info("found derivatives position", "instrument", in.String(), "size", size, "price", fh.AvgPosPrice)
	}
	return nil
}

func (b *Broker) loadDepoPositions(ctx context.Context, account domain.Account) error {
	limits, err := b.client.DepoLimits(ctx)
	if err != nil {
		if errors.Is(err, quik.ErrNotFound) {
			return nil
		}
		return errors.WithMessage(err, "fail read depo limits")
	}

	// One row per security: the highest limit_kind is the current one.
	latest := make(map[string]quik.DepoLimit)
	for _, dl := range limits {
		if dl.ClientCode != account.ClientCode || dl.FirmID != account.FirmID {
			continue
		}
		if prev, ok := latest[dl.SecCode]; !ok || dl.LimitKind > prev.LimitKind {
			latest[dl.SecCode] = dl
		}
	}

	for sec, dl := range latest {
		if dl.CurrentBal == 0 {
			continue
		}
		in, si := b.resolveSecurityClass(ctx, account, sec)
		if si == nil {
			b.log.Warn("position for unresolvable security", "sec_code", sec)
			continue
		}
		size := dl.CurrentBal
		if b.cfg.Lots {
			size = quik.LotsToSize(si, size)
		}
		price := quik.FromQuikPrice(si, dl.AvgPrice)
		b.positions[in] = &domain.Position{Size: size, Price: price}
		b.log.Info("found securities position", "instrument", in.String(), "size", size, "price", price)
	}
	return nil
}

// resolveSecurityClass finds which of the account's trading modes the
// security actually trades in; depo limits carry only the sec code.
func (b *Broker) resolveSecurityClass(ctx context.Context, account domain.Account, secCode string) (domain.Instrument, *quik.SymbolInfo) {
	for _, class := range account.ClassCodes {
		in := domain.Instrument{ClassCode: class, SecCode: secCode}
		if si, err := b.symbolInfo(ctx, in); err == nil {
			return in, si
		}
	}
	return domain.Instrument{}, nil
}

// CheckInstrument validates a CLASS.SEC name against the terminal before
// any subscription or order touches it. A failure here is fatal to the
// calling session and is not retried.
func (b *Broker) CheckInstrument(ctx context.Context, name string) error {
	in, err := domain.ParseInstrument(name)
	if err != nil {
		return err
	}
	if err := b.client.CheckInstrument(ctx, in.ClassCode, in.SecCode); err != nil {
		return err
	}
	b.log.Info("instrument available", "instrument", in.String())
	return nil
}

// PriceStep returns the quoted price step parameter of an instrument.
func (b *Broker) PriceStep(ctx context.Context, in domain.Instrument) (float64, error) {
	si, err := b.symbolInfo(ctx, in)
	if err != nil {
		return 0, err
	}
	return si.MinPriceStep, nil
}

// StepCost returns the currency value of one price step.
func (b *Broker) StepCost(ctx context.Context, in domain.Instrument) (float64, error) {
	return b.client.Param(ctx, in.ClassCode, in.SecCode, "STEPPRICE")
}

// InitialMargin returns the per-contract margin requirement of a
// derivative: the larger of the buy and sell deposits the venue quotes.
func (b *Broker) InitialMargin(ctx context.Context, in domain.Instrument) (float64, error) {
	buy, err := b.client.Param(ctx, in.ClassCode, in.SecCode, "BUYDEPO")
	if err != nil {
		return 0, err
	}
	sell, err := b.client.Param(ctx, in.ClassCode, in.SecCode, "SELLDEPO")
	if err != nil {
		return 0, err
	}
	if sell > buy {
		return sell, nil
	}
	return buy, nil
}
