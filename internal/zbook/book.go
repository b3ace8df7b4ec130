// Package zbook reconstructs the Z (level-aggregated) order book and runs
// its imbalance/z-score signal engine. Numeric semantics are grounded on
// the producer reference implementation's ob_apply/ob_snapshot/
// compute_signal functions.
package zbook

import "math"

// DefaultDepth is the typical per-side level count (§3).
const DefaultDepth = 15

// DefaultTopN is the default number of levels summed for imbalance.
const DefaultTopN = 5

// Level is one aggregated price level.
type Level struct {
	Price    float64
	Qty      int
	NOrders  int
	Valid    bool
}

// Book holds both sides of one symbol's level-aggregated book.
type Book struct {
	Depth int
	Bids  []Level
	Asks  []Level
}

// NewBook allocates a book with fixed depth per side.
func NewBook(depth int) *Book {
	return &Book{Depth: depth, Bids: make([]Level, depth), Asks: make([]Level, depth)}
}

// Apply mutates the book per one Z: payload operation. Returns bad=true
// when the position is out of [0, depth) for an A/U/D:1 op (the mutation
// is then dropped, per §4.5).
func (b *Book) Apply(op byte, cancelType int, side byte, pos int, price float64, qty, nOrders int) (bad bool) {
	if op == 'D' && cancelType == 3 {
		b.reset()
		return false
	}
	if op == 'D' && cancelType == 1 {
		if pos < 0 || pos >= b.Depth {
			return true
		}
		switch side {
		case 'A':
			shiftDelete(b.Bids, pos)
		case 'V':
			shiftDelete(b.Asks, pos)
		}
		return false
	}
	if op == 'A' || op == 'U' {
		if pos < 0 || pos >= b.Depth {
			return true
		}
		arr := b.Bids
		if side == 'V' {
			arr = b.Asks
		}
		arr[pos] = Level{Price: price, Qty: qty, NOrders: nOrders, Valid: true}
		return false
	}
	return false
}

func (b *Book) reset() {
	for i := range b.Bids {
		b.Bids[i] = Level{}
	}
	for i := range b.Asks {
		b.Asks[i] = Level{}
	}
}

func shiftDelete(arr []Level, pos int) {
	for i := pos; i < len(arr)-1; i++ {
		arr[i] = arr[i+1]
	}
	arr[len(arr)-1] = Level{}
}

// Snapshot is the per-second book feature set consumed by the signal
// engine and written to CSV.
type Snapshot struct {
	BestBid, BestAsk, Spread, Mid     float64
	Microprice                        float64
	BidQty0, AskQty0                  int
	BidQtyTopN, AskQtyTopN            int
	Imb                               float64
	BookReady                         bool
}

// Snapshot computes the current top-of-book and imbalance features over
// the top n levels (n is clamped to Depth).
func (b *Book) Snapshot(topN int) Snapshot {
	s := Snapshot{BestBid: math.NaN(), BestAsk: math.NaN(), Spread: math.NaN(), Mid: math.NaN()}

	if b.Bids[0].Valid {
		s.BestBid = b.Bids[0].Price
		s.BidQty0 = b.Bids[0].Qty
	}
	if b.Asks[0].Valid {
		s.BestAsk = b.Asks[0].Price
		s.AskQty0 = b.Asks[0].Qty
	}

	n := topN
	if n > b.Depth {
		n = b.Depth
	}
	var bsum, asum int
	for i := 0; i < n; i++ {
		if b.Bids[i].Valid {
			bsum += b.Bids[i].Qty
		}
		if b.Asks[i].Valid {
			asum += b.Asks[i].Qty
		}
	}
	s.BidQtyTopN = bsum
	s.AskQtyTopN = asum

	if denom := bsum + asum; denom > 0 {
		s.Imb = float64(bsum-asum) / float64(denom)
	}

	s.Microprice = math.NaN()
	if !math.IsNaN(s.BestBid) && !math.IsNaN(s.BestAsk) {
		s.Spread = s.BestAsk - s.BestBid
		s.Mid = (s.BestAsk + s.BestBid) / 2.0
		s.BookReady = true
		if denom := s.BidQty0 + s.AskQty0; denom > 0 {
			s.Microprice = (s.BestBid*float64(s.AskQty0) + s.BestAsk*float64(s.BidQty0)) / float64(denom)
		} else {
			s.Microprice = s.Mid
		}
	}
	return s
}
