package bbook

import (
	"math"
	"testing"
)

// Scenario 4 from §8: a price-up move on the bid with an unchanged
// ask contributes the full new bid quantity to OFI and nothing from the ask.
func TestOFIIncrementPriceUpBid(t *testing.T) {
	got := Increment(10.0, 5, 11.0, 5, 10.5, 7, 11.0, 5)
	if got != 7 {
		t.Fatalf("expected OFI increment 7, got %v", got)
	}
}

func TestOFIIncrementSamePriceNets(t *testing.T) {
	got := Increment(10.0, 5, 11.0, 5, 10.0, 8, 11.0, 3)
	want := (8.0 - 5.0) - (3.0 - 5.0)
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestOFIIncrementBidDownSubtractsPrevQty(t *testing.T) {
	got := Increment(10.0, 5, 11.0, 5, 9.5, 7, 11.0, 5)
	if got != -5 {
		t.Fatalf("expected -5 from a bid price drop, got %v", got)
	}
}

func TestUpdateAfterEventRequiresInitBeforeAccumulating(t *testing.T) {
	b := NewBook(5)
	b.Bid.Insert(0, Order{Price: 10.0, Qty: 5})
	b.Ask.Insert(0, Order{Price: 11.0, Qty: 5})

	var st OFIState
	var sum float64

	st.UpdateAfterEvent(b, &sum)
	if sum != 0 {
		t.Fatalf("expected no contribution on first snapshot, got %v", sum)
	}

	b.Bid.Arr[0].Qty = 7
	st.UpdateAfterEvent(b, &sum)
	if sum != 2 {
		t.Fatalf("expected sum 2 after qty-only change, got %v", sum)
	}
}

func TestUpdateAfterEventInvalidatesWhenSideEmpties(t *testing.T) {
	b := NewBook(5)
	b.Bid.Insert(0, Order{Price: 10.0, Qty: 5})
	b.Ask.Insert(0, Order{Price: 11.0, Qty: 5})

	var st OFIState
	var sum float64
	st.UpdateAfterEvent(b, &sum)

	b.Ask.Clear()
	st.UpdateAfterEvent(b, &sum)
	if sum != 0 {
		t.Fatalf("expected no contribution while ask side is empty, got %v", sum)
	}

	b.Ask.Insert(0, Order{Price: 11.0, Qty: 5})
	st.UpdateAfterEvent(b, &sum)
	if sum != 0 {
		t.Fatalf("expected re-init (no retroactive contribution) after side refills, got %v", sum)
	}

	b.Bid.Arr[0].Qty = 6
	st.UpdateAfterEvent(b, &sum)
	if sum != 1 {
		t.Fatalf("expected sum 1 once both sides are present again, got %v", sum)
	}
}

func TestSignalRuleGatedByMinEvents(t *testing.T) {
	if got := SignalRule(2, 1, 1, 10, 0.1, 5, 5, 2); got != "FLAT" {
		t.Fatalf("expected FLAT below min_events, got %q", got)
	}
}

func TestSignalRuleBuyAndSell(t *testing.T) {
	if got := SignalRule(2, 1, 1, 10, 0.1, 5, 1, 10); got != "BUY" {
		t.Fatalf("expected BUY, got %q", got)
	}
	if got := SignalRule(1, 2, -1, -10, 0.1, 5, 1, 10); got != "SELL" {
		t.Fatalf("expected SELL, got %q", got)
	}
}

func TestEmitBarMicropriceFallsBackToMidWhenQtyZero(t *testing.T) {
	st := NewSymState(5)
	st.ResetBar(0)
	st.Book.Bid.Insert(0, Order{Price: 10.0, Qty: 0})
	st.Book.Ask.Insert(0, Order{Price: 10.2, Qty: 0})
	st.UpdateOFI()

	bar := EmitBar(DefaultBarConfig(), st)
	if math.Abs(bar.Mid-10.1) > 1e-9 {
		t.Fatalf("expected mid 10.1, got %v", bar.Mid)
	}
	if math.Abs(bar.Microprice-bar.Mid) > 1e-9 {
		t.Fatalf("expected microprice to fall back to mid on zero total qty, got %v", bar.Microprice)
	}
}

func TestEmitBarNaNWhenOneSideMissing(t *testing.T) {
	st := NewSymState(5)
	st.ResetBar(0)
	st.Book.Bid.Insert(0, Order{Price: 10.0, Qty: 5})
	st.UpdateOFI()

	bar := EmitBar(DefaultBarConfig(), st)
	if !math.IsNaN(bar.Spread) || !math.IsNaN(bar.Mid) || !math.IsNaN(bar.Microprice) {
		t.Fatal("expected spread/mid/microprice to be NaN with only one side present")
	}
}

func TestEmitBarTracksBookLengths(t *testing.T) {
	st := NewSymState(5)
	st.ResetBar(0)
	st.Book.Bid.Insert(0, Order{Price: 10.0, Qty: 5})
	st.Book.Bid.Insert(1, Order{Price: 9.9, Qty: 3})
	st.Book.Ask.Insert(0, Order{Price: 10.1, Qty: 2})

	bar := EmitBar(DefaultBarConfig(), st)
	if bar.TrackedBidLen != 2 || bar.TrackedAskLen != 1 {
		t.Fatalf("expected tracked lengths 2/1, got %d/%d", bar.TrackedBidLen, bar.TrackedAskLen)
	}
}
