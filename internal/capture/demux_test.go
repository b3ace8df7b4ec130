package capture

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gustavoferreira/cedrofeed/internal/wire"
)

func rec(day string, payload string) wire.Record {
	ts, _ := time.ParseInLocation("20060102", day, time.UTC)
	return wire.Record{WriteTS: ts, PacketBytes: len(payload), DeltaMs: 0, Payload: payload}
}

func TestDemuxRoutesByClassAndFlushesRaw(t *testing.T) {
	dir := t.TempDir()
	d := NewDemultiplexer(dir)

	if err := d.Ingest(rec("20260731", "Z:PETR4:A:0:A:10.0:5:1")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := d.FlushAll(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "20260731_raw_data.txt"))
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if !strings.Contains(string(raw), "Z:PETR4:A:0:A:10.0:5:1") {
		t.Fatalf("raw file missing payload: %s", raw)
	}

	zfile, err := os.ReadFile(filepath.Join(dir, "20260731_Z.txt"))
	if err != nil {
		t.Fatalf("read Z file: %v", err)
	}
	if !strings.Contains(string(zfile), "Z:PETR4:A:0:A:10.0:5:1") {
		t.Fatalf("Z file missing payload: %s", zfile)
	}

	if _, err := os.Stat(filepath.Join(dir, "20260731_B.txt")); err != nil {
		t.Fatalf("expected B file to exist (eagerly opened): %v", err)
	}
}

func TestDemuxUnknownClassGoesOnlyToRaw(t *testing.T) {
	dir := t.TempDir()
	d := NewDemultiplexer(dir)
	if err := d.Ingest(rec("20260731", "garbage line")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	d.FlushAll()

	zfile, _ := os.ReadFile(filepath.Join(dir, "20260731_Z.txt"))
	if strings.Contains(string(zfile), "garbage") {
		t.Fatal("unknown-class line should not appear in a per-class file")
	}
}

func TestDemuxBatchThresholdFlushesWithoutExplicitFlush(t *testing.T) {
	dir := t.TempDir()
	d := NewDemultiplexer(dir)

	for i := 0; i < BatchThreshold; i++ {
		if err := d.Ingest(rec("20260731", "Z:PETR4:E")); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "20260731_raw_data.txt"))
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != BatchThreshold {
		t.Fatalf("expected threshold auto-flush of %d lines, got %d", BatchThreshold, len(lines))
	}
}

func TestDemuxDayRollover(t *testing.T) {
	dir := t.TempDir()
	d := NewDemultiplexer(dir)

	d.Ingest(rec("20260731", "Z:PETR4:E"))
	d.Ingest(rec("20260801", "Z:PETR4:E"))
	d.FlushAll()

	if _, err := os.Stat(filepath.Join(dir, "20260731_raw_data.txt")); err != nil {
		t.Fatalf("expected day-1 file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "20260801_raw_data.txt")); err != nil {
		t.Fatalf("expected day-2 file after rollover: %v", err)
	}
}
