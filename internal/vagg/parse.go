package vagg

import (
	"strconv"
	"strings"
)

// Op identifies what a parsed "V:" line asks the book to do.
type Op int

const (
	OpUnknown Op = iota
	OpTrade
	OpRemoveOne
	OpRemoveAll
)

// Trade is one parsed trade print.
type Trade struct {
	Symbol     string
	TimeMs     int
	Price, Qty float64
	Aggressor  byte
}

// parseHHMMSSMsToMs parses HHMMSS or HHMMSSmmm into milliseconds since
// midnight.
func parseHHMMSSMsToMs(s string) (int, bool) {
	if len(s) < 6 {
		return 0, false
	}
	for i := 0; i < 6; i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	hh := int(s[0]-'0')*10 + int(s[1]-'0')
	mm := int(s[2]-'0')*10 + int(s[3]-'0')
	ss := int(s[4]-'0')*10 + int(s[5]-'0')
	if hh > 23 || mm > 59 || ss > 59 {
		return 0, false
	}
	ms := 0
	if len(s) >= 9 {
		for i := 6; i < 9; i++ {
			if s[i] < '0' || s[i] > '9' {
				return 0, false
			}
		}
		ms = int(s[6]-'0')*100 + int(s[7]-'0')*10 + int(s[8]-'0')
	}
	return (hh*3600+mm*60+ss)*1000 + ms, true
}

// ParseLine extracts a "V:" payload (the part of the line from the first
// "V:" onward) and classifies it as a trade, a single-trade removal, or a
// book reset. Truncated or malformed lines are reported via ok=false
// (§4.8's "ignored safely").
func ParseLine(line string) (symbol string, op Op, trade Trade, ok bool) {
	idx := strings.Index(line, "V:")
	if idx < 0 {
		return "", OpUnknown, Trade{}, false
	}
	payload := strings.TrimRight(line[idx:], "\r\n")

	parts := strings.SplitN(payload, ":", 16)
	if len(parts) < 3 || parts[0] != "V" {
		return "", OpUnknown, Trade{}, false
	}
	symbol = parts[1]
	opStr := parts[2]
	if symbol == "" || opStr == "" {
		return "", OpUnknown, Trade{}, false
	}

	switch opStr[0] {
	case 'R':
		return symbol, OpRemoveAll, Trade{}, true
	case 'D':
		return symbol, OpRemoveOne, Trade{}, true
	case 'A':
		// fall through to trade parsing
	default:
		return "", OpUnknown, Trade{}, false
	}

	isSnapshot := len(parts) >= 13
	idxCond, idxAggr, idxOrig := 9, 10, 11
	if isSnapshot {
		idxCond, idxAggr, idxOrig = 10, 11, 12
	}
	_ = idxCond
	if len(parts) <= idxOrig {
		return "", OpUnknown, Trade{}, false
	}

	tMs, ok1 := parseHHMMSSMsToMs(parts[3])
	price, err1 := strconv.ParseFloat(parts[4], 64)
	qty, err2 := strconv.ParseFloat(parts[7], 64)
	if !ok1 || err1 != nil || err2 != nil || qty <= 0 {
		return "", OpUnknown, Trade{}, false
	}

	aggr := byte('I')
	if a := parts[idxAggr]; a != "" {
		aggr = a[0]
	}

	return symbol, OpTrade, Trade{Symbol: symbol, TimeMs: tMs, Price: price, Qty: qty, Aggressor: aggr}, true
}
