package domain

import "testing"

func TestPositionOpenThenClose(t *testing.T) {
	var p Position

	size, price, opened, closed := p.Update(10, 100)
	if size != 10 || price != 100 {
		t.Fatalf("after open: size=%v price=%v, want 10/100", size, price)
	}
	if opened != 10 || closed != 0 {
		t.Errorf("after open: opened=%v closed=%v, want 10/0", opened, closed)
	}

	size, price, opened, closed = p.Update(-10, 110)
	if size != 0 {
		t.Errorf("after close: size=%v, want 0", size)
	}
	if price != 0 {
		t.Errorf("after close: price=%v, want reset to 0", price)
	}
	if opened != 0 || closed != -10 {
		t.Errorf("after close: opened=%v closed=%v, want 0/-10", opened, closed)
	}
}

func TestPositionAddSameSide(t *testing.T) {
	var p Position
	p.Update(10, 100)
	size, price, opened, closed := p.Update(10, 110)
	if size != 20 || price != 105 {
		t.Errorf("size=%v price=%v, want 20/105", size, price)
	}
	if opened != 10 || closed != 0 {
		t.Errorf("opened=%v closed=%v, want 10/0", opened, closed)
	}
}

func TestPositionReduceKeepsPrice(t *testing.T) {
	var p Position
	p.Update(10, 100)
	size, price, opened, closed := p.Update(-4, 120)
	if size != 6 || price != 100 {
		t.Errorf("size=%v price=%v, want 6/100", size, price)
	}
	if opened != 0 || closed != -4 {
		t.Errorf("opened=%v closed=%v, want 0/-4", opened, closed)
	}
}

func TestPositionSignFlip(t *testing.T) {
	p := Position{Size: -5, Price: 100}
	size, price, opened, closed := p.Update(8, 102)
	if size != 3 {
		t.Errorf("size=%v, want 3", size)
	}
	if price != 102 {
		t.Errorf("price=%v, want new average 102", price)
	}
	if opened != 3 {
		t.Errorf("opened=%v, want 3", opened)
	}
	if closed != 5 {
		t.Errorf("closed=%v, want 5 (the short covered against the old average)", closed)
	}
}

func TestPositionShortSide(t *testing.T) {
	var p Position
	p.Update(-10, 50)
	size, price, _, _ := p.Update(-10, 60)
	if size != -20 || price != 55 {
		t.Errorf("size=%v price=%v, want -20/55", size, price)
	}
	size, _, opened, closed := p.Update(5, 40)
	if size != -15 || opened != 0 || closed != 5 {
		t.Errorf("size=%v opened=%v closed=%v, want -15/0/5", size, opened, closed)
	}
}
