package bbook

import "testing"

// Scenario 1 from §8: a new best bid displaces the prior best, which
// is then cancelled; the displacing order remains the book's best.
func TestInsertThenBestCancelKeepsNewBest(t *testing.T) {
	sb := NewSideBook(5)
	sb.Insert(0, Order{Price: 95.0, Qty: 3})
	sb.Insert(0, Order{Price: 100.0, Qty: 10})

	if sb.Arr[0].Price != 100.0 || sb.Arr[0].Qty != 10 {
		t.Fatalf("expected best 100.0/10, got %+v", sb.Arr[0])
	}

	sb.RemoveAt(1)

	if sb.Len != 1 {
		t.Fatalf("expected one order remaining, got len=%d", sb.Len)
	}
	if sb.Arr[0].Price != 100.0 || sb.Arr[0].Qty != 10 {
		t.Fatalf("expected best to remain 100.0/10, got %+v", sb.Arr[0])
	}
}

func TestInsertFullBookDropsTail(t *testing.T) {
	sb := NewSideBook(2)
	sb.Insert(0, Order{Price: 10.0, Qty: 1})
	sb.Insert(1, Order{Price: 9.0, Qty: 2})
	sb.Insert(1, Order{Price: 9.5, Qty: 3})

	if sb.Len != 2 {
		t.Fatalf("expected len capped at 2, got %d", sb.Len)
	}
	if sb.Arr[1].Price != 9.5 {
		t.Fatalf("expected tail dropped in favor of new insert, got %+v", sb.Arr[1])
	}
}

func TestRemoveBestToClearsWhenCoveringWholeBook(t *testing.T) {
	sb := NewSideBook(5)
	sb.Insert(0, Order{Price: 10.0, Qty: 1})
	sb.Insert(1, Order{Price: 9.9, Qty: 2})

	sb.RemoveBestTo(1)

	if sb.Len != 0 {
		t.Fatalf("expected book cleared, got len=%d", sb.Len)
	}
}

func TestRemoveBestToCompactsRemainder(t *testing.T) {
	sb := NewSideBook(5)
	sb.Insert(0, Order{Price: 10.0, Qty: 1})
	sb.Insert(1, Order{Price: 9.9, Qty: 2})
	sb.Insert(2, Order{Price: 9.8, Qty: 3})

	sb.RemoveBestTo(0)

	if sb.Len != 2 {
		t.Fatalf("expected 2 remaining, got %d", sb.Len)
	}
	if sb.Arr[0].Price != 9.9 || sb.Arr[1].Price != 9.8 {
		t.Fatalf("expected remainder shifted to front, got %+v", sb.Arr[:2])
	}
}

func TestD3ClearsBothSides(t *testing.T) {
	b := NewBook(5)
	b.Bid.Insert(0, Order{Price: 10.0, Qty: 1})
	b.Ask.Insert(0, Order{Price: 10.1, Qty: 1})

	b.Clear()

	if b.Bid.HasBest() || b.Ask.HasBest() {
		t.Fatal("expected D:3 to clear both sides")
	}
}

func TestApplyUpdateSamePositionIsInPlace(t *testing.T) {
	b := NewBook(5)
	b.Bid.Insert(0, Order{Price: 10.0, Qty: 1, OrderID: 1})
	b.Bid.Insert(1, Order{Price: 9.9, Qty: 2, OrderID: 2})

	b.ApplyUpdate('A', 1, 1, Order{Price: 9.9, Qty: 5, OrderID: 2})

	if b.Bid.Len != 2 {
		t.Fatalf("expected no shift, len stayed at 2, got %d", b.Bid.Len)
	}
	if b.Bid.Arr[1].Qty != 5 {
		t.Fatalf("expected in-place qty update, got %+v", b.Bid.Arr[1])
	}
}

func TestApplyUpdateDeeperPositionDecrementsAfterRemove(t *testing.T) {
	b := NewBook(5)
	b.Bid.Insert(0, Order{Price: 10.0, Qty: 1, OrderID: 1})
	b.Bid.Insert(1, Order{Price: 9.9, Qty: 2, OrderID: 2})
	b.Bid.Insert(2, Order{Price: 9.8, Qty: 3, OrderID: 3})

	// Order 1 moves from pos 0 to pos 2: removing it first shifts order 2
	// and order 3 up by one, so the insert position decrements to 1.
	b.ApplyUpdate('A', 2, 0, Order{Price: 9.7, Qty: 9, OrderID: 1})

	if b.Bid.Arr[0].OrderID != 2 || b.Bid.Arr[2].OrderID != 3 {
		t.Fatalf("expected order 2 at front and order 3 behind the reinsert, got %+v", b.Bid.Arr[:3])
	}
	if b.Bid.Arr[1].OrderID != 1 || b.Bid.Arr[1].Price != 9.7 {
		t.Fatalf("expected order 1 reinserted at decremented pos 1, got %+v", b.Bid.Arr[1])
	}
}

func TestSumQtyFirstClampsToLen(t *testing.T) {
	sb := NewSideBook(5)
	sb.Insert(0, Order{Price: 10.0, Qty: 4})
	if got := sb.SumQtyFirst(5); got != 4 {
		t.Fatalf("expected sum clamped to available entries, got %v", got)
	}
}
