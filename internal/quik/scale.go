package quik

import "github.com/shopspring/decimal"

// Price and lot conversions at the venue boundary. Tick arithmetic is done
// in decimals so that rounding to a price step never drifts on binary
// fractions like 0.1.

// ValidPrice rounds a price to the nearest multiple of the instrument's
// minimum price step.
func ValidPrice(si *SymbolInfo, price float64) float64 {
	step := decimal.NewFromFloat(si.MinPriceStep)
	if step.IsZero() {
		return price
	}
	steps := decimal.NewFromFloat(price).Div(step).Round(0)
	v, _ := steps.Mul(step).Float64()
	return v
}

// ToQuikPrice converts a currency-per-unit price into the venue's native
// representation, rounded to a valid price step.
func ToQuikPrice(si *SymbolInfo, price float64) float64 {
	scale := decimal.NewFromFloat(si.PriceScale)
	p := decimal.NewFromFloat(price)
	if !scale.IsZero() {
		p = p.Div(scale)
	}
	v, _ := p.Float64()
	return ValidPrice(si, v)
}

// FromQuikPrice converts a venue-native price into currency per unit.
func FromQuikPrice(si *SymbolInfo, quikPrice float64) float64 {
	scale := decimal.NewFromFloat(si.PriceScale)
	if scale.IsZero() {
		return quikPrice
	}
	v, _ := decimal.NewFromFloat(quikPrice).Mul(scale).Float64()
	return v
}

// LotsToSize converts a lot count into underlying units.
func LotsToSize(si *SymbolInfo, lots float64) float64 {
	if si.LotSize == 0 {
		return lots
	}
	v, _ := decimal.NewFromFloat(lots).Mul(decimal.NewFromFloat(si.LotSize)).Float64()
	return v
}

// SizeToLots converts an underlying-unit size into whole lots, truncating
// toward zero.
func SizeToLots(si *SymbolInfo, size float64) float64 {
	if si.LotSize == 0 {
		return size
	}
	v, _ := decimal.NewFromFloat(size).Div(decimal.NewFromFloat(si.LotSize)).Truncate(0).Float64()
	return v
}
