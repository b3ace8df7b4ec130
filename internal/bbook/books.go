package bbook

// Books tracks per-symbol book/bar state for a B aggregator run, mirroring
// the producer reference's process_line symbol table.
type Books struct {
	cfg     BarConfig
	bookCap int
	syms    map[string]*SymState
}

// NewBooks returns an empty symbol registry using cfg for bar emission and
// bookCap as each side's order-granularity capacity.
func NewBooks(cfg BarConfig, bookCap int) *Books {
	return &Books{cfg: cfg, bookCap: bookCap, syms: make(map[string]*SymState)}
}

func (bs *Books) get(symbol string) *SymState {
	st, ok := bs.syms[symbol]
	if !ok {
		st = NewSymState(bs.bookCap)
		bs.syms[symbol] = st
	}
	return st
}

// ProcessLine decodes one "B:" payload observed at secOfDay (seconds since
// midnight, from the record's write_ts) and applies it to the matching
// symbol's book. When the event's bar window is later than the symbol's
// open bar, the prior bar is closed and returned for emission first (the
// per-symbol, event-driven close documented by the reference's
// process_line: a bar only closes when that same symbol's next event lands
// in a later window). A late event (secOfDay behind the open bar) still
// mutates the book but never re-opens or re-emits a bar.
func (bs *Books) ProcessLine(payload string, secOfDay int) (symbol string, closed Bar, emitted, handled bool) {
	ev, ok := ParseLine(payload)
	if !ok {
		return "", Bar{}, false, false
	}
	st := bs.get(ev.Symbol)

	barStart := (secOfDay / bs.cfg.BarSec) * bs.cfg.BarSec
	if !st.BarInited {
		st.ResetBar(barStart)
	} else if barStart > st.BarStartSec {
		closed = EmitBar(bs.cfg, st)
		emitted = true
		st.ResetBar(barStart)
	}
	// barStart < st.BarStartSec: late event, book still mutates below but
	// no bar boundary crossing is recognized.

	st.Events++
	switch ev.Op {
	case 'E':
		st.EMsgs++
	case 'D':
		switch ev.CancelType {
		case 3:
			st.D3++
		case 2:
			st.D2++
		default:
			st.D1++
		}
	case 'A':
		st.Adds++
	case 'U':
		st.Updates++
	}

	st.Book.Apply(ev)
	st.UpdateOFI()
	return ev.Symbol, closed, emitted, true
}

// Flush closes every symbol's open bar (end-of-file drain, per the
// reference's main-loop final flush).
func (bs *Books) Flush() []struct {
	Symbol string
	Bar    Bar
} {
	var out []struct {
		Symbol string
		Bar    Bar
	}
	for sym, st := range bs.syms {
		if st.BarInited {
			out = append(out, struct {
				Symbol string
				Bar    Bar
			}{sym, EmitBar(bs.cfg, st)})
		}
	}
	return out
}
