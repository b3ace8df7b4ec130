package tagg

import (
	"math"
	"testing"
	"time"
)

func sampleTime() time.Time {
	return time.Date(2026, 3, 10, 10, 0, 1, 0, time.UTC)
}

func TestParseMessageExtractsFields(t *testing.T) {
	sym, fields, ok := ParseMessage("T:PETR4:X:2:35.10:3:35.05:4:35.15!")
	if !ok {
		t.Fatal("expected ok parse")
	}
	if sym != "PETR4" {
		t.Fatalf("expected symbol PETR4, got %q", sym)
	}
	if len(fields) != 3 || fields[0].Idx != 2 || fields[0].Val != "35.10" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestParseMessageRejectsNonT(t *testing.T) {
	if _, _, ok := ParseMessage("B:PETR4:X:1:1!"); ok {
		t.Fatal("expected non-T message to be rejected")
	}
}

func TestParseMessageRequiresBang(t *testing.T) {
	if _, _, ok := ParseMessage("T:PETR4:X:2:35.10"); ok {
		t.Fatal("expected message without terminator to be rejected")
	}
}

// Scenario 5 from §8: a second with no update carries the prior
// second's last/bid/ask forward and marks carry_forward_1s.
func TestFlushSecondCarriesForwardWithoutUpdate(t *testing.T) {
	cfg := DefaultConfig()
	st := NewSymbolState()
	b := NewBucket()

	ApplyField(b, Field{Idx: 2, Val: "35.10"})
	ApplyField(b, Field{Idx: 3, Val: "35.05"})
	ApplyField(b, Field{Idx: 4, Val: "35.15"})
	row1 := FlushSecond(cfg, "PETR4", st, b, sampleTime(), sampleTime())
	if row1.HadUpdate != 1 || row1.CarryForward != 0 {
		t.Fatalf("expected had_update on first flush, got %+v", row1)
	}

	row2 := FlushSecond(cfg, "PETR4", st, b, sampleTime().Add(time.Second), sampleTime().Add(time.Second))
	if row2.HadUpdate != 0 || row2.CarryForward != 1 {
		t.Fatalf("expected carry-forward on the empty second, got %+v", row2)
	}
	if row2.Last != 35.10 || row2.Bid != 35.05 || row2.Ask != 35.15 {
		t.Fatalf("expected state carried forward, got %+v", row2)
	}
}

func TestFlushSecondDetectsDayReset(t *testing.T) {
	cfg := DefaultConfig()
	st := NewSymbolState()
	b := NewBucket()

	ApplyField(b, Field{Idx: 8, Val: "100"})
	ApplyField(b, Field{Idx: 9, Val: "5000"})
	row1 := FlushSecond(cfg, "PETR4", st, b, sampleTime(), sampleTime())
	if row1.ResetDay != 0 {
		t.Fatal("unexpected reset on first observation")
	}

	ApplyField(b, Field{Idx: 8, Val: "10"})
	ApplyField(b, Field{Idx: 9, Val: "200"})
	row2 := FlushSecond(cfg, "PETR4", st, b, sampleTime().Add(time.Second), sampleTime().Add(time.Second))
	if row2.ResetDay != 1 {
		t.Fatal("expected reset_day when cumulative counters regress")
	}
	if row2.DTrades != 0 || row2.DVol != 0 {
		t.Fatalf("expected zero deltas on a reset second, got %+v", row2)
	}
}

func TestFlushSecondDeltaVolumeAccumulates(t *testing.T) {
	cfg := DefaultConfig()
	st := NewSymbolState()
	b := NewBucket()

	ApplyField(b, Field{Idx: 8, Val: "100"})
	ApplyField(b, Field{Idx: 9, Val: "5000"})
	FlushSecond(cfg, "PETR4", st, b, sampleTime(), sampleTime())

	ApplyField(b, Field{Idx: 8, Val: "103"})
	ApplyField(b, Field{Idx: 9, Val: "5400"})
	row2 := FlushSecond(cfg, "PETR4", st, b, sampleTime().Add(time.Second), sampleTime().Add(time.Second))
	if row2.DTrades != 3 || row2.DVol != 400 {
		t.Fatalf("expected deltas 3/400, got %d/%d", row2.DTrades, row2.DVol)
	}
}

func TestSafeImbAndMicropriceNaNWhenQtyMissing(t *testing.T) {
	if !math.IsNaN(safeImb(missingInt64, 10)) {
		t.Fatal("expected NaN imbalance when a qty is missing")
	}
	if !math.IsNaN(safeMicroprice(10, 11, missingInt64, 5)) {
		t.Fatal("expected NaN microprice when a qty is missing")
	}
}

func TestComputeSignalHysteresis(t *testing.T) {
	if s := computeSignal(2.5, 0, 2.0, 1.0); s != 1 {
		t.Fatalf("expected entry signal 1 at score above enter_th, got %d", s)
	}
	if s := computeSignal(1.2, 1, 2.0, 1.0); s != 1 {
		t.Fatalf("expected hold at keep_th once already long, got %d", s)
	}
	if s := computeSignal(0.5, 1, 2.0, 1.0); s != 0 {
		t.Fatalf("expected signal to drop below keep_th, got %d", s)
	}
}

func TestTickDirAggregationThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickDirTh = 2
	st := NewSymbolState()
	b := NewBucket()
	ApplyField(b, Field{Idx: 106, Val: "+"})
	ApplyField(b, Field{Idx: 106, Val: "+"})
	row := FlushSecond(cfg, "PETR4", st, b, sampleTime(), sampleTime())
	if row.TickDirAgg != 1 {
		t.Fatalf("expected aggregated tick direction +1, got %d", row.TickDirAgg)
	}
}
