package zbook

import (
	"math"
	"testing"
)

func TestEmptyBookSnapshotNotReady(t *testing.T) {
	b := NewBook(DefaultDepth)
	snap := b.Snapshot(DefaultTopN)
	if snap.BookReady {
		t.Fatal("expected book not ready when empty")
	}
	if !math.IsNaN(snap.BestBid) || !math.IsNaN(snap.BestAsk) {
		t.Fatal("expected NaN best bid/ask on empty book")
	}
}

func TestApplyAddWritesSlot(t *testing.T) {
	b := NewBook(DefaultDepth)
	if bad := b.Apply('A', 0, 'A', 0, 10.0, 5, 1); bad {
		t.Fatal("unexpected bad position")
	}
	if !b.Bids[0].Valid || b.Bids[0].Price != 10.0 || b.Bids[0].Qty != 5 {
		t.Fatalf("unexpected bid slot %+v", b.Bids[0])
	}
}

func TestApplyOutOfRangeIsBad(t *testing.T) {
	b := NewBook(DefaultDepth)
	if bad := b.Apply('A', 0, 'A', DefaultDepth, 10.0, 5, 1); !bad {
		t.Fatal("expected out-of-range position to be reported bad")
	}
}

// Scenario 2 from §8.
func TestSnapshotImbalanceScenario(t *testing.T) {
	b := NewBook(DefaultDepth)
	b.Apply('A', 0, 'A', 0, 10.0, 5, 1)
	b.Apply('A', 0, 'V', 0, 10.1, 3, 1)

	snap := b.Snapshot(5)
	if snap.BestBid != 10.0 || snap.BestAsk != 10.1 {
		t.Fatalf("unexpected best bid/ask: %+v", snap)
	}
	if math.Abs(snap.Spread-0.1) > 1e-9 {
		t.Fatalf("expected spread 0.1, got %v", snap.Spread)
	}
	if math.Abs(snap.Mid-10.05) > 1e-9 {
		t.Fatalf("expected mid 10.05, got %v", snap.Mid)
	}
	wantImb := (5.0 - 3.0) / 8.0
	if math.Abs(snap.Imb-wantImb) > 1e-9 {
		t.Fatalf("expected imb %v, got %v", wantImb, snap.Imb)
	}
	microprice := (snap.BestBid*float64(snap.AskQty0) + snap.BestAsk*float64(snap.BidQty0)) / float64(snap.BidQty0+snap.AskQty0)
	if math.Abs(microprice-10.0625) > 1e-9 {
		t.Fatalf("expected microprice 10.0625, got %v", microprice)
	}
}

func TestD1ShiftDeleteCompactsLevels(t *testing.T) {
	b := NewBook(DefaultDepth)
	b.Apply('A', 0, 'A', 0, 10.0, 5, 1)
	b.Apply('A', 0, 'A', 1, 9.9, 7, 2)

	b.Apply('D', 1, 'A', 0, 0, 0, 0)

	if b.Bids[0].Price != 9.9 || b.Bids[0].Qty != 7 {
		t.Fatalf("expected level 1 shifted into slot 0, got %+v", b.Bids[0])
	}
	if b.Bids[1].Valid {
		t.Fatal("expected vacated tail slot to be invalid")
	}
}

func TestD3ResetsBothSides(t *testing.T) {
	b := NewBook(DefaultDepth)
	b.Apply('A', 0, 'A', 0, 10.0, 5, 1)
	b.Apply('A', 0, 'V', 0, 10.1, 3, 1)

	b.Apply('D', 3, 0, 0, 0, 0, 0)

	if b.Bids[0].Valid || b.Asks[0].Valid {
		t.Fatal("expected D:3 to clear both sides")
	}
}

func TestDepthConstantAcrossMutations(t *testing.T) {
	b := NewBook(DefaultDepth)
	b.Apply('A', 0, 'A', 3, 10.0, 5, 1)
	if b.Depth != DefaultDepth || len(b.Bids) != DefaultDepth {
		t.Fatal("expected depth to remain constant")
	}
}
