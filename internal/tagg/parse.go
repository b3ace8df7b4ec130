package tagg

import (
	"strconv"
	"strings"
)

// Field is one idx:value pair from a "T:" message body.
type Field struct {
	Idx int
	Val string
}

// ParseMessage splits a "T:SYMBOL:...:idx:val:idx:val...!" message (the
// trailing '!' and anything after it are discarded) into its symbol and
// idx:value pairs. ok is false for anything not starting with "T:" or
// missing the terminating '!', or with too few leading tokens.
func ParseMessage(msg string) (symbol string, fields []Field, ok bool) {
	msg = strings.TrimSpace(msg)
	if !strings.HasPrefix(msg, "T:") {
		return "", nil, false
	}
	bang := strings.IndexByte(msg, '!')
	if bang < 0 {
		return "", nil, false
	}
	body := msg[:bang]
	if len(body) < 4 {
		return "", nil, false
	}

	toks := strings.Split(body, ":")
	if len(toks) < 3 || toks[0] != "T" {
		return "", nil, false
	}
	symbol = toks[1]
	if symbol == "" {
		return "", nil, false
	}
	rest := toks[3:]

	for i := 0; i+1 < len(rest); i += 2 {
		idx, err := strconv.Atoi(rest[i])
		if err != nil {
			continue
		}
		fields = append(fields, Field{Idx: idx, Val: rest[i+1]})
	}
	return symbol, fields, true
}

func tickDirValue(s string) int {
	s = strings.TrimSpace(s)
	if strings.ContainsRune(s, '+') {
		return 1
	}
	if strings.ContainsRune(s, '-') {
		return -1
	}
	return 0
}

// ApplyField folds one idx:value pair into the current second's bucket,
// tracking how many fields have landed (§4.7 field tag map).
func ApplyField(b *Bucket, f Field) {
	b.NEvents++
	v := strings.TrimSpace(f.Val)

	switch f.Idx {
	case 2:
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			b.Last = x
		}
	case 3:
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			b.Bid = x
		}
	case 4:
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			b.Ask = x
		}
	case 19:
		if x, err := parseLLFromAny(v); err == nil {
			b.BidQty1 = x
		}
	case 20:
		if x, err := parseLLFromAny(v); err == nil {
			b.AskQty1 = x
		}
	case 6:
		if x, err := parseLLFromAny(v); err == nil {
			b.TradeQtyCur = x
		}
	case 7:
		if x, err := parseLLFromAny(v); err == nil {
			b.TradeQtyLast = x
		}
	case 8:
		if x, err := parseLLFromAny(v); err == nil {
			b.CumTrades = x
		}
	case 9:
		if x, err := parseLLFromAny(v); err == nil {
			b.CumVol = x
		}
	case 10:
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			b.CumFin = x
		}
	case 21:
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			b.Variation = x
		}
	case 67:
		if x, err := parseLLFromAny(v); err == nil {
			b.Status = x
		}
	case 88:
		b.Phase = v
	case 106:
		b.TickDirLast = v
		b.TickDirSum += tickDirValue(v)
		b.TickDirN++
	case 142:
		b.LastEvent142 = v
	case 143:
		b.LastTrade143 = v
	}
}

// parseLLFromAny parses a value the way the reference's int(float(s))
// coercion does: through a float so values like "120.0" parse cleanly.
func parseLLFromAny(s string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
