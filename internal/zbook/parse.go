package zbook

import (
	"strconv"
	"strings"
)

// Event is one decoded Z: payload operation, grounded on the producer
// reference's parse_event/Event struct.
type Event struct {
	Symbol     string
	Op         byte
	CancelType int
	Side       byte
	Pos        int
	Price      float64
	Qty        int
	NOrders    int
}

// ParseLine decodes a "Z:<symbol>:<op>:..." payload. ok is false when the
// payload is too short, carries an unrecognized class tag or op, or is an
// A/U/D op missing trailing fields; Books.Apply counts such a payload as
// bad for a registered symbol.
func ParseLine(payload string) (ev Event, ok bool) {
	parts := strings.Split(payload, ":")
	if len(parts) < 3 || parts[0] != "Z" {
		return Event{}, false
	}
	ev.Symbol = parts[1]
	if ev.Symbol == "" || parts[2] == "" {
		return Event{}, false
	}
	ev.Op = parts[2][0]
	ev.Pos = -1

	switch ev.Op {
	case 'A', 'U':
		if len(parts) < 8 {
			return Event{}, false
		}
		ev.Pos = atoiSafe(parts[3])
		ev.Side = sideByte(parts[4])
		ev.Price = atofSafe(parts[5])
		ev.Qty = int(atofSafe(parts[6]))
		ev.NOrders = int(atofSafe(parts[7]))
	case 'D':
		if len(parts) < 4 {
			return Event{}, false
		}
		ev.CancelType = atoiSafe(parts[3])
		if ev.CancelType == 1 {
			if len(parts) < 6 {
				return Event{}, false
			}
			ev.Side = sideByte(parts[4])
			ev.Pos = atoiSafe(parts[5])
		}
	case 'E':
		// no extra fields
	default:
		return Event{}, false
	}
	return ev, true
}

func sideByte(s string) byte {
	if s == "" {
		return 0
	}
	return s[0]
}

// atoiSafe parses a leading integer, matching atoi's permissive behavior
// of returning 0 on a non-numeric string instead of erroring.
func atoiSafe(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// atofSafe parses a leading float, matching strtod's permissive behavior.
func atofSafe(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
