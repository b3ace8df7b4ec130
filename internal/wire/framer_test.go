package wire

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFramerSingleLine(t *testing.T) {
	f := NewFramer(fixedClock(time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)))
	recs := f.Feed([]byte("Z:PETR4:A:0:A:10.0:5:1\n"))
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Payload != "Z:PETR4:A:0:A:10.0:5:1" {
		t.Fatalf("unexpected payload %q", recs[0].Payload)
	}
}

func TestFramerSplitAcrossReads(t *testing.T) {
	f := NewFramer(fixedClock(time.Now()))
	recs := f.Feed([]byte("Z:PETR4:A:0:A"))
	if len(recs) != 0 {
		t.Fatalf("expected 0 records from partial read, got %d", len(recs))
	}
	recs = f.Feed([]byte(":10.0:5:1\n"))
	if len(recs) != 1 {
		t.Fatalf("expected 1 record after completion, got %d", len(recs))
	}
	if recs[0].Payload != "Z:PETR4:A:0:A:10.0:5:1" {
		t.Fatalf("unexpected reassembled payload %q", recs[0].Payload)
	}
}

func TestFramerMultipleLinesOneRead(t *testing.T) {
	f := NewFramer(fixedClock(time.Now()))
	recs := f.Feed([]byte("B:PETR4:A:0:A:10:1:1:1\nV:PETR4:R\n"))
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
}

func TestFramerTrimsCR(t *testing.T) {
	f := NewFramer(fixedClock(time.Now()))
	recs := f.Feed([]byte("T:PETR4:0:2:100!\r\n"))
	if recs[0].Payload != "T:PETR4:0:2:100!" {
		t.Fatalf("expected trailing CR trimmed, got %q", recs[0].Payload)
	}
}

func TestFramerDropsEmptyLines(t *testing.T) {
	f := NewFramer(fixedClock(time.Now()))
	recs := f.Feed([]byte("\n\nZ:X:E\n"))
	if len(recs) != 1 {
		t.Fatalf("expected empty lines dropped, got %d records", len(recs))
	}
}

func TestFramerDeltaMs(t *testing.T) {
	base := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	cur := base
	f := NewFramer(func() time.Time { return cur })

	recs := f.Feed([]byte("Z:X:E\n"))
	if recs[0].DeltaMs != 0 {
		t.Fatalf("expected first record delta 0, got %d", recs[0].DeltaMs)
	}

	cur = base.Add(250 * time.Millisecond)
	recs = f.Feed([]byte("Z:X:E\n"))
	if recs[0].DeltaMs != 250 {
		t.Fatalf("expected delta 250ms, got %d", recs[0].DeltaMs)
	}
}

func TestFramerPacketBytesPerRead(t *testing.T) {
	f := NewFramer(fixedClock(time.Now()))
	payload := "Z:X:E\nZ:X:E\n"
	recs := f.Feed([]byte(payload))
	for _, r := range recs {
		if r.PacketBytes != len(payload) {
			t.Fatalf("expected packet_bytes %d, got %d", len(payload), r.PacketBytes)
		}
	}
}

func TestRecordClass(t *testing.T) {
	cases := map[string]byte{
		"Z:X:E":       ClassZ,
		"B:X:A:0":     ClassB,
		"V:X:R":       ClassV,
		"T:X:0:2:1!":  ClassT,
		"garbage":     ClassOther,
		"X:unknown":   ClassOther,
	}
	for payload, want := range cases {
		r := Record{Payload: payload}
		if got := r.Class(); got != want {
			t.Errorf("Class(%q) = %c, want %c", payload, got, want)
		}
	}
}

func TestLineRoundTrip(t *testing.T) {
	r := Record{
		WriteTS:     time.Date(2026, 7, 31, 9, 30, 15, 0, SaoPaulo),
		PacketBytes: 128,
		DeltaMs:     42,
		Payload:     "Z:PETR4:A:0:A:10.0:5:1",
	}
	line := r.Line()
	got, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if got.PacketBytes != r.PacketBytes || got.DeltaMs != r.DeltaMs || got.Payload != r.Payload {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, r)
	}
	if !got.WriteTS.Equal(r.WriteTS) {
		t.Fatalf("timestamp mismatch: got %v, want %v", got.WriteTS, r.WriteTS)
	}
}

func TestParseLineMalformed(t *testing.T) {
	if _, err := ParseLine("not,enough"); err == nil {
		t.Fatal("expected error for malformed row")
	}
}

func TestRecordDay(t *testing.T) {
	r := Record{WriteTS: time.Date(2026, 7, 31, 23, 59, 59, 0, SaoPaulo)}
	if r.Day() != "20260731" {
		t.Fatalf("expected 20260731, got %s", r.Day())
	}
}
