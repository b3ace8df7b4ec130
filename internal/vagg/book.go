package vagg

// Book tracks per-symbol bar state for a V aggregator run.
type Book struct {
	syms map[string]*SymState
}

// NewBook returns an empty symbol registry.
func NewBook() *Book {
	return &Book{syms: make(map[string]*SymState)}
}

func (bk *Book) get(symbol string) *SymState {
	st, ok := bk.syms[symbol]
	if !ok {
		st = NewSymState(symbol)
		bk.syms[symbol] = st
	}
	return st
}

// ProcessLine routes one parsed "V:" line to the matching symbol's bar
// state. A trade that closes a bar returns it with emitted=true; a trade
// for an already-closed window returns late=true instead of mutating
// state (§4.8).
func (bk *Book) ProcessLine(cfg Config, line string) (symbol string, bar Bar, emitted, late, handled bool) {
	sym, op, trade, ok := ParseLine(line)
	if !ok {
		return "", Bar{}, false, false, false
	}

	st := bk.get(sym)

	switch op {
	case OpRemoveAll:
		st.BarInited = false
		st.EmaFastInited, st.EmaSlowInited, st.EmaDeltaInited = false, false, false
		return sym, Bar{}, false, false, true
	case OpRemoveOne:
		return sym, Bar{}, false, false, true
	case OpTrade:
		bar, emitted, late := ProcessTrade(cfg, st, trade.TimeMs, trade.Price, trade.Qty, trade.Aggressor)
		return sym, bar, emitted, late, true
	default:
		return "", Bar{}, false, false, false
	}
}

// Flush closes every symbol's open bar (end-of-file drain).
func (bk *Book) Flush(cfg Config) []struct {
	Symbol string
	Bar    Bar
} {
	var out []struct {
		Symbol string
		Bar    Bar
	}
	for sym, st := range bk.syms {
		if !st.BarInited {
			continue
		}
		if bar, ok := EmitBar(cfg, st); ok {
			out = append(out, struct {
				Symbol string
				Bar    Bar
			}{sym, bar})
		}
	}
	return out
}
