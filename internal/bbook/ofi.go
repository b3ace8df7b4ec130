package bbook

// OFIState tracks the previous best-quote snapshot an accumulator needs to
// compute the next top-of-book OFI increment.
type OFIState struct {
	inited bool
	bidPx, bidQty float64
	askPx, askQty float64
}

// Increment computes one OFI contribution per the signed definition in
// §4.6. Both sides must be present (callers check HasBest first).
func Increment(prevBidPx, prevBidQty, prevAskPx, prevAskQty, bidPx, bidQty, askPx, askQty float64) float64 {
	var ofi float64

	switch {
	case bidPx > prevBidPx:
		ofi += bidQty
	case bidPx == prevBidPx:
		ofi += bidQty - prevBidQty
	default:
		ofi -= prevBidQty
	}

	switch {
	case askPx < prevAskPx:
		ofi -= askQty
	case askPx == prevAskPx:
		ofi -= askQty - prevAskQty
	default:
		ofi += prevAskQty
	}

	return ofi
}

// UpdateAfterEvent recomputes the best-quote snapshot and folds the next
// OFI increment into sum. When either side is empty, the prior-best state
// is invalidated: no contribution is made until both sides are present
// again (§4.6, §8 boundary behavior).
func (st *OFIState) UpdateAfterEvent(book *Book, sum *float64) {
	if !book.Bid.HasBest() || !book.Ask.HasBest() {
		st.inited = false
		return
	}

	bidPx, bidQty := book.Bid.Arr[0].Price, book.Bid.Arr[0].Qty
	askPx, askQty := book.Ask.Arr[0].Price, book.Ask.Arr[0].Qty

	if !st.inited {
		st.inited = true
		st.bidPx, st.bidQty = bidPx, bidQty
		st.askPx, st.askQty = askPx, askQty
		return
	}

	*sum += Increment(st.bidPx, st.bidQty, st.askPx, st.askQty, bidPx, bidQty, askPx, askQty)

	st.bidPx, st.bidQty = bidPx, bidQty
	st.askPx, st.askQty = askPx, askQty
}
