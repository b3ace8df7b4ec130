// Package bbook reconstructs the B (order-granularity) book, accumulates
// top-of-book OFI, and aggregates per-bar EMA signals. Grounded on the
// producer reference's side_insert/side_remove_at/side_remove_best_to and
// ofi_increment/emit_bar functions.
package bbook

// Order is one resting order at a positional slot of a SideBook.
type Order struct {
	Price   float64
	Qty     float64
	Broker  int
	OrderID int64
	OType   byte
	DH      string
	Valid   bool
}

// SideBook is a shift-array of orders, best at index 0, length tracked
// separately from capacity.
type SideBook struct {
	Arr []Order
	Cap int
	Len int
}

// NewSideBook allocates a side book with the given capacity.
func NewSideBook(cap int) *SideBook {
	return &SideBook{Arr: make([]Order, cap), Cap: cap}
}

// Clear empties the side book without reallocating.
func (sb *SideBook) Clear() {
	sb.Len = 0
}

// Insert places o at pos, shifting deeper entries one slot further; if the
// book is full the order at the tail is dropped (§4.6's "drop the tail").
func (sb *SideBook) Insert(pos int, o Order) {
	if pos < 0 {
		return
	}
	if pos > sb.Len {
		pos = sb.Len
	}
	if pos >= sb.Cap {
		return
	}
	o.Valid = true
	if sb.Len < sb.Cap {
		copy(sb.Arr[pos+1:sb.Len+1], sb.Arr[pos:sb.Len])
		sb.Arr[pos] = o
		sb.Len++
		return
	}
	copy(sb.Arr[pos+1:sb.Cap], sb.Arr[pos:sb.Cap-1])
	sb.Arr[pos] = o
	sb.Len = sb.Cap
}

// RemoveAt removes the order at pos, shifting the remainder left.
func (sb *SideBook) RemoveAt(pos int) {
	if pos < 0 || pos >= sb.Len {
		return
	}
	copy(sb.Arr[pos:sb.Len-1], sb.Arr[pos+1:sb.Len])
	sb.Len--
	if sb.Len >= 0 && sb.Len < sb.Cap {
		sb.Arr[sb.Len] = Order{}
	}
}

// RemoveBestTo removes entries [0..posInclusive] and shifts the remainder
// to the front — the D:2 "delete best up to pos" operation (DESIGN.md
// Open Question (a)).
func (sb *SideBook) RemoveBestTo(posInclusive int) {
	if posInclusive < 0 {
		return
	}
	k := posInclusive + 1
	if k >= sb.Len {
		sb.Clear()
		return
	}
	copy(sb.Arr[0:sb.Len-k], sb.Arr[k:sb.Len])
	newLen := sb.Len - k
	for i := newLen; i < sb.Len && i < sb.Cap; i++ {
		sb.Arr[i] = Order{}
	}
	sb.Len = newLen
}

// HasBest reports whether the side has at least one resting order.
func (sb *SideBook) HasBest() bool { return sb.Len > 0 }

// SumQtyFirst sums quantity over the first n entries (clamped to Len).
func (sb *SideBook) SumQtyFirst(n int) float64 {
	if n <= 0 {
		return 0
	}
	if n > sb.Len {
		n = sb.Len
	}
	var s float64
	for i := 0; i < n; i++ {
		s += sb.Arr[i].Qty
	}
	return s
}

// Book holds both sides of one symbol's order-granularity book.
type Book struct {
	Bid *SideBook
	Ask *SideBook
}

// NewBook allocates a book with the given per-side capacity.
func NewBook(cap int) *Book {
	return &Book{Bid: NewSideBook(cap), Ask: NewSideBook(cap)}
}

// Clear empties both sides (the D:3 operation).
func (b *Book) Clear() {
	b.Bid.Clear()
	b.Ask.Clear()
}

// Side selects the bid or ask book by the wire's 'A'/'V' direction tag.
func (b *Book) Side(dir byte) *SideBook {
	if dir == 'A' {
		return b.Bid
	}
	return b.Ask
}

// ApplyUpdate implements the U op's pos_new/pos_old reconciliation rule:
// in-place when unchanged, otherwise remove-then-insert with pos_new
// decremented when it was deeper than pos_old (§4.6, §8 boundary rules).
func (b *Book) ApplyUpdate(dir byte, posNew, posOld int, o Order) {
	sb := b.Side(dir)
	if posNew == posOld {
		if posOld >= 0 && posOld < sb.Len && posOld < sb.Cap {
			o.Valid = true
			sb.Arr[posOld] = o
		} else {
			sb.Insert(posNew, o)
		}
		return
	}
	if posOld >= 0 && posOld < sb.Len {
		sb.RemoveAt(posOld)
		if posNew > posOld {
			posNew--
		}
	}
	sb.Insert(posNew, o)
}
