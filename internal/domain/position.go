package domain

// Position is the net size and volume-weighted entry price held in one
// instrument. The zero value is a flat position.
type Position struct {
	Size  float64
	Price float64
}

// Update applies a signed fill of the given size and price and returns the
// new position size/price plus the opened and closed portions of the fill.
//
// Price is recomputed only for size added on the same side; closing volume
// realizes against the existing average and leaves it unchanged unless the
// position flips sign, in which case the fill splits into a closing portion
// (against the old average) and an opening portion establishing a new
// average at the fill price.
func (p *Position) Update(size, price float64) (newSize, newPrice, opened, closed float64) {
	oldSize := p.Size
	p.Size += size

	switch {
	case p.Size == 0:
		// Existing position fully closed.
		opened, closed = 0, size
		p.Price = 0
	case oldSize == 0:
		// Opening from flat.
		opened, closed = size, 0
		p.Price = price
	case oldSize > 0:
		switch {
		case size > 0: // adding to a long
			opened, closed = size, 0
			p.Price = (p.Price*oldSize + size*price) / p.Size
		case p.Size > 0: // reducing a long
			opened, closed = 0, size
		default: // long flipped short
			opened, closed = p.Size, -oldSize
			p.Price = price
		}
	default: // oldSize < 0
		switch {
		case size < 0: // adding to a short
			opened, closed = size, 0
			p.Price = (p.Price*oldSize + size*price) / p.Size
		case p.Size < 0: // reducing a short
			opened, closed = 0, size
		default: // short flipped long
			opened, closed = p.Size, -oldSize
			p.Price = price
		}
	}
	return p.Size, p.Price, opened, closed
}
