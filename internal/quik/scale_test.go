package quik

import "testing"

func TestValidPriceRoundsToStep(t *testing.T) {
	si := &SymbolInfo{MinPriceStep: 0.05}
	if got := ValidPrice(si, 100.07); got != 100.05 {
		t.Errorf("ValidPrice(100.07) = %v, want 100.05", got)
	}
	if got := ValidPrice(si, 100.08); got != 100.1 {
		t.Errorf("ValidPrice(100.08) = %v, want 100.1", got)
	}
	// Binary-fraction steps must not drift.
	si = &SymbolInfo{MinPriceStep: 0.1}
	if got := ValidPrice(si, 0.3); got != 0.3 {
		t.Errorf("ValidPrice(0.3) = %v, want 0.3", got)
	}
}

func TestValidPriceZeroStep(t *testing.T) {
	si := &SymbolInfo{}
	if got := ValidPrice(si, 123.45); got != 123.45 {
		t.Errorf("ValidPrice with zero step = %v, want passthrough", got)
	}
}

func TestPriceScaleRoundTrip(t *testing.T) {
	// A bond quoted in percent of a 1000 face: one venue unit is 10 currency.
	si := &SymbolInfo{MinPriceStep: 0.01, PriceScale: 10}
	venue := ToQuikPrice(si, 985.0)
	if venue != 98.5 {
		t.Errorf("ToQuikPrice(985) = %v, want 98.5", venue)
	}
	if back := FromQuikPrice(si, venue); back != 985.0 {
		t.Errorf("FromQuikPrice(%v) = %v, want 985", venue, back)
	}

	// Ordinary equity: identity scale, only step rounding applies.
	si = &SymbolInfo{MinPriceStep: 0.5, PriceScale: 1}
	if got := ToQuikPrice(si, 250.3); got != 250.5 {
		t.Errorf("ToQuikPrice(250.3) = %v, want 250.5", got)
	}
}

func TestLotConversions(t *testing.T) {
	si := &SymbolInfo{LotSize: 10}
	if got := LotsToSize(si, 3); got != 30 {
		t.Errorf("LotsToSize(3) = %v, want 30", got)
	}
	if got := SizeToLots(si, 35); got != 3 {
		t.Errorf("SizeToLots(35) = %v, want 3 (truncated)", got)
	}
	if got := SizeToLots(si, -35); got != -3 {
		t.Errorf("SizeToLots(-35) = %v, want -3 (truncated toward zero)", got)
	}
	// Derivatives report no lot multiplier.
	si = &SymbolInfo{}
	if got := LotsToSize(si, 7); got != 7 {
		t.Errorf("LotsToSize with zero lot size = %v, want passthrough", got)
	}
}
