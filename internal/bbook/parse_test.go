package bbook

import "testing"

func TestParseLineAddOrder(t *testing.T) {
	ev, ok := ParseLine("B:PETR4:A:0:A:10.5:200:123:01081230:987654:L")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if ev.Symbol != "PETR4" || ev.Op != 'A' || ev.Pos != 0 || ev.Side != 'A' {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Order.Price != 10.5 || ev.Order.Qty != 200 || ev.Order.Broker != 123 || ev.Order.OrderID != 987654 || ev.Order.OType != 'L' {
		t.Fatalf("unexpected order: %+v", ev.Order)
	}
	if ev.Order.DH != "01081230" {
		t.Fatalf("unexpected dh: %q", ev.Order.DH)
	}
}

func TestParseLineUpdateOrder(t *testing.T) {
	ev, ok := ParseLine("B:PETR4:U:1:0:A:10.6:100:42:01081231:987655:L")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if ev.Pos != 1 || ev.PosOld != 0 || ev.Side != 'A' || ev.Order.Price != 10.6 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestParseLineCancelAtPos(t *testing.T) {
	ev, ok := ParseLine("B:PETR4:D:1:V:3")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if ev.CancelType != 1 || ev.Side != 'V' || ev.Pos != 3 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestParseLineClearAll(t *testing.T) {
	ev, ok := ParseLine("B:PETR4:D:3")
	if !ok || ev.CancelType != 3 {
		t.Fatalf("expected clear-all to parse, got %+v ok=%v", ev, ok)
	}
}

func TestParseLineRejectsTruncatedAdd(t *testing.T) {
	if _, ok := ParseLine("B:PETR4:A:0:A:10.5"); ok {
		t.Fatal("expected truncated A op to be rejected")
	}
}

func TestApplyAddThenCancelAtPos(t *testing.T) {
	b := NewBook(10)
	ev, _ := ParseLine("B:PETR4:A:0:A:10.5:200:123:01081230:1:L")
	b.Apply(ev)
	if b.Bid.Len != 1 {
		t.Fatalf("expected 1 bid order, got %d", b.Bid.Len)
	}
	cancel, _ := ParseLine("B:PETR4:D:1:A:0")
	b.Apply(cancel)
	if b.Bid.Len != 0 {
		t.Fatalf("expected cancel to empty the bid side, got len %d", b.Bid.Len)
	}
}

func TestApplyRemoveBestToPrefix(t *testing.T) {
	b := NewBook(10)
	for i := 0; i < 3; i++ {
		ev, _ := ParseLine("B:PETR4:A:0:A:10.0:100:1:01081230:1:L")
		b.Apply(ev)
	}
	rb, _ := ParseLine("B:PETR4:D:2:A:1")
	b.Apply(rb)
	if b.Bid.Len != 1 {
		t.Fatalf("expected RemoveBestTo(1) to leave 1 order, got %d", b.Bid.Len)
	}
}

func TestApplyClearAllEmptiesBothSides(t *testing.T) {
	b := NewBook(10)
	a, _ := ParseLine("B:PETR4:A:0:A:10.0:100:1:01081230:1:L")
	b.Apply(a)
	b.Apply(Event{Op: 'D', CancelType: 3})
	if b.Bid.Len != 0 || b.Ask.Len != 0 {
		t.Fatalf("expected both sides empty after D:3, got bid=%d ask=%d", b.Bid.Len, b.Ask.Len)
	}
}
