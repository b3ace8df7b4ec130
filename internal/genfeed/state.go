// Package genfeed emits well-formed Cedro-protocol lines (B:/V:/T:/Z:)
// over a raw TCP listener (or directly to a file) so the whole pipeline
// can be exercised without a live exchange connection. It reuses the
// consumer-side internal/zbook and internal/bbook book types as its own
// producer-side state, matching each package's op semantics exactly:
// internal/bbook's Insert/RemoveAt already perform the shift, so one "A"/
// "D:1" line per mutation suffices; internal/zbook writes the slot
// verbatim, so the producer must itself pre-shift and emit one line per
// affected slot, per the producer convention §4.5 documents.
package genfeed

import (
	"github.com/gustavoferreira/cedrofeed/internal/bbook"
	"github.com/gustavoferreira/cedrofeed/internal/zbook"
)

// SymState is one symbol's producer-side book + ticker mirror.
type SymState struct {
	Symbol string

	ZB *zbook.Book
	BB *bbook.Book

	nextOrderID int64
	nextTradeID int64

	lastTrade  float64
	cumTrades  int64
	cumVol     int64
	cumFin     float64
	tickDir    string
}

// NewSymState seeds an empty book pair for symbol.
func NewSymState(symbol string, depth, bookCap int) *SymState {
	return &SymState{
		Symbol: symbol,
		ZB:     zbook.NewBook(depth),
		BB:     bbook.NewBook(bookCap),
	}
}

func (s *SymState) newOrderID() int64 {
	s.nextOrderID++
	return s.nextOrderID
}

func (s *SymState) newTradeID() int64 {
	s.nextTradeID++
	return s.nextTradeID
}
