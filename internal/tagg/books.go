package tagg

import "time"

// symEntry pairs one symbol's carried-forward state with its in-flight
// second bucket.
type symEntry struct {
	st *SymbolState
	b  *Bucket
}

// Books is the registered-symbol table the global per-second sweep walks,
// mirroring the producer reference's fixed slots array: every registered
// symbol is flushed every elapsed second regardless of whether it saw
// activity, which is what makes carry-forward and "no data" rows possible.
type Books struct {
	order []string
	syms  map[string]*symEntry
}

// NewBooks returns an empty registry.
func NewBooks() *Books {
	return &Books{syms: make(map[string]*symEntry)}
}

func (bk *Books) get(symbol string) *symEntry {
	e, ok := bk.syms[symbol]
	if !ok {
		e = &symEntry{st: NewSymbolState(), b: NewBucket()}
		bk.syms[symbol] = e
		bk.order = append(bk.order, symbol)
	}
	return e
}

// ApplyMessage decodes one "T:" message and folds its fields into the
// named symbol's current-second bucket, registering the symbol if this is
// its first sighting.
func (bk *Books) ApplyMessage(msg string) (symbol string, ok bool) {
	sym, fields, ok := ParseMessage(msg)
	if !ok {
		return "", false
	}
	e := bk.get(sym)
	for _, f := range fields {
		ApplyField(e.b, f)
	}
	return sym, true
}

// Sweep flushes every registered symbol's bucket for one elapsed second,
// in first-seen order. FlushSecond resets each bucket in place for the
// next second.
func (bk *Books) Sweep(cfg Config, writeTS, readTS time.Time) []Row {
	rows := make([]Row, 0, len(bk.order))
	for _, sym := range bk.order {
		e := bk.syms[sym]
		rows = append(rows, FlushSecond(cfg, sym, e.st, e.b, writeTS, readTS))
	}
	return rows
}
