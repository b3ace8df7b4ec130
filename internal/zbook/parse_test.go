package zbook

import "testing"

func TestParseLineAddOp(t *testing.T) {
	ev, ok := ParseLine("Z:PETR4:A:0:A:10.5:200:3")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if ev.Symbol != "PETR4" || ev.Op != 'A' || ev.Pos != 0 || ev.Side != 'A' || ev.Price != 10.5 || ev.Qty != 200 || ev.NOrders != 3 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestParseLineCancelAtPos(t *testing.T) {
	ev, ok := ParseLine("Z:PETR4:D:1:V:2")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if ev.CancelType != 1 || ev.Side != 'V' || ev.Pos != 2 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestParseLineClearAll(t *testing.T) {
	ev, ok := ParseLine("Z:PETR4:D:3")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if ev.CancelType != 3 {
		t.Fatalf("expected cancel type 3, got %+v", ev)
	}
}

func TestParseLineEndOfBook(t *testing.T) {
	ev, ok := ParseLine("Z:PETR4:E")
	if !ok || ev.Op != 'E' {
		t.Fatalf("expected E op to parse, got %+v ok=%v", ev, ok)
	}
}

func TestParseLineRejectsWrongClass(t *testing.T) {
	if _, ok := ParseLine("B:PETR4:A:0:A:10:1:1"); ok {
		t.Fatal("expected non-Z payload to be rejected")
	}
}

func TestParseLineRejectsTruncatedAdd(t *testing.T) {
	if _, ok := ParseLine("Z:PETR4:A:0:A"); ok {
		t.Fatal("expected truncated A op to be rejected")
	}
}
