// Package tagg aggregates Cedro "T:" ticker update lines into fixed-width
// per-second bars with carry-forward state and a composite tick signal.
// Grounded on the producer reference's flush_second/parse_T_message_and_update.
package tagg

import "math"

const missingInt64 = math.MinInt64

func isMissingInt64(v int64) bool { return v == missingInt64 }
func isMissingFloat(v float64) bool { return math.IsNaN(v) }

// Bucket accumulates field updates seen within the current second for one
// symbol; it is reset after every flush.
type Bucket struct {
	Last, Bid, Ask             float64
	BidQty1, AskQty1           int64
	TradeQtyCur, TradeQtyLast  int64
	Status                     int64
	Phase                      string
	TickDirLast                string
	TickDirSum, TickDirN       int
	Variation                  float64
	CumTrades, CumVol          int64
	CumFin                     float64
	LastEvent142, LastTrade143 string
	NEvents                    int
}

// NewBucket returns a bucket with all scalar fields at their "missing"
// sentinel.
func NewBucket() *Bucket {
	b := &Bucket{}
	b.reset()
	return b
}

func (b *Bucket) reset() {
	*b = Bucket{
		Last: math.NaN(), Bid: math.NaN(), Ask: math.NaN(),
		BidQty1: missingInt64, AskQty1: missingInt64,
		TradeQtyCur: missingInt64, TradeQtyLast: missingInt64,
		Status:    missingInt64,
		Variation: math.NaN(),
		CumTrades: missingInt64, CumVol: missingInt64,
		CumFin: math.NaN(),
	}
}

// SymbolState is the running, carried-forward state for one symbol across
// seconds.
type SymbolState struct {
	Last, Bid, Ask            float64
	BidQty1, AskQty1          int64
	TradeQtyCur, TradeQtyLast int64
	Status                    int64
	Phase                     string
	TickDir                   string
	Variation                 float64
	CumTrades, CumVol         int64
	CumFin                    float64
	PrevLastForTick           float64
	LastSignal                int
	LastScore                 float64
}

// NewSymbolState returns carry-forward state initialized to "nothing seen
// yet".
func NewSymbolState() *SymbolState {
	return &SymbolState{
		Last: math.NaN(), Bid: math.NaN(), Ask: math.NaN(),
		BidQty1: missingInt64, AskQty1: missingInt64,
		TradeQtyCur: missingInt64, TradeQtyLast: missingInt64,
		Status:          missingInt64,
		Variation:       math.NaN(),
		CumTrades:       missingInt64,
		CumVol:          missingInt64,
		CumFin:          math.NaN(),
		PrevLastForTick: math.NaN(),
	}
}

// Config holds the filter and signal tunables (defaults mirror the
// reference tool's --imb-th/--tickdir-th/--enter-th/--keep-th).
type Config struct {
	MaxSpread    float64
	RequireTrade bool
	MinVol       int64
	ImbTh        float64
	MicroDevTh   float64
	TickDirTh    int
	EnterTh      float64
	KeepTh       float64
}

// DefaultConfig mirrors the reference tool's opts_init defaults.
func DefaultConfig() Config {
	return Config{ImbTh: 0.15, TickDirTh: 2, EnterTh: 2.0, KeepTh: 1.0}
}
