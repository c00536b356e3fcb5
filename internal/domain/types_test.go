package domain

import "testing"

func TestParseInstrument(t *testing.T) {
	in, err := ParseInstrument("TQBR.SBER")
	if err != nil {
		t.Fatalf("ParseInstrument returned error: %v", err)
	}
	if in.ClassCode != "TQBR" || in.SecCode != "SBER" {
		t.Errorf("ParseInstrument = %+v, want TQBR/SBER", in)
	}
	if got := in.String(); got != "TQBR.SBER" {
		t.Errorf("Instrument.String() = %q, want %q", got, "TQBR.SBER")
	}

	// The sec code may itself contain a dot; only the first one splits.
	in, err = ParseInstrument("SPBFUT.Si-12.25")
	if err != nil {
		t.Fatalf("ParseInstrument returned error: %v", err)
	}
	if in.SecCode != "Si-12.25" {
		t.Errorf("SecCode = %q, want %q", in.SecCode, "Si-12.25")
	}

	for _, bad := range []string{"", "TQBR", "TQBR.", ".SBER"} {
		if _, err := ParseInstrument(bad); err == nil {
			t.Errorf("ParseInstrument(%q) should fail", bad)
		}
	}
}

func TestAccountSupportsClass(t *testing.T) {
	acc := Account{ClassCodes: []string{"TQBR", "TQOB"}}
	if !acc.SupportsClass("TQBR") {
		t.Error("SupportsClass(TQBR) = false, want true")
	}
	if acc.SupportsClass("SPBFUT") {
		t.Error("SupportsClass(SPBFUT) = true, want false")
	}
}

func TestOrderTypeSupported(t *testing.T) {
	supported := []OrderType{OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeStopLimit}
	for _, ot := range supported {
		if !ot.Supported() {
			t.Errorf("%v.Supported() = false, want true", ot)
		}
	}
	unsupported := []OrderType{OrderTypeClose, OrderTypeStopTrail, OrderTypeStopTrailLimit, OrderTypeHistorical}
	for _, ot := range unsupported {
		if ot.Supported() {
			t.Errorf("%v.Supported() = true, want false", ot)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	alive := []OrderStatus{OrderStatusCreated, OrderStatusSubmitted, OrderStatusAccepted, OrderStatusPartial}
	for _, s := range alive {
		if s.Terminal() {
			t.Errorf("%v.Terminal() = true, want false", s)
		}
	}
	terminal := []OrderStatus{OrderStatusCompleted, OrderStatusCanceled, OrderStatusRejected, OrderStatusMargin}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%v.Terminal() = false, want true", s)
		}
	}
}
