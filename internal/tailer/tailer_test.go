package tailer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gustavoferreira/cedrofeed/internal/checkpoint"
	"github.com/gustavoferreira/cedrofeed/internal/wire"
)

func writeCapture(t *testing.T, path string, lines []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	for _, l := range lines {
		if _, err := f.WriteString(l + "\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func captureRow(ymd, payload string) string {
	ts, _ := time.ParseInLocation("20060102", ymd, time.UTC)
	return wire.Record{WriteTS: ts, PacketBytes: 10, DeltaMs: 0, Payload: payload}.Line()
}

func TestTailerBatchModeReadsAllAndExits(t *testing.T) {
	dir := t.TempDir()
	ymd := "20260731"
	path := filepath.Join(dir, ymd+"_Z.txt")
	writeCapture(t, path, []string{
		captureRow(ymd, "Z:PETR4:A:0:A:10.0:5:1"),
		captureRow(ymd, "Z:PETR4:A:0:V:10.1:3:1"),
	})

	fixed := func() time.Time { return time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC) }
	tl := New(Options{
		Template: filepath.Join(dir, "{ymd}_Z.txt"),
		Class:    wire.ClassZ,
		Key:      "test",
		Batch:    true,
		Now:      fixed,
	})

	var got []wire.Record
	err := tl.Run(nil, func(r wire.Record) error {
		got = append(got, r)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Payload != "Z:PETR4:A:0:A:10.0:5:1" {
		t.Fatalf("unexpected first payload %q", got[0].Payload)
	}
}

func TestTailerResumesFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	ymd := "20260731"
	path := filepath.Join(dir, ymd+"_Z.txt")
	row1 := captureRow(ymd, "Z:PETR4:A:0:A:10.0:5:1")
	row2 := captureRow(ymd, "Z:PETR4:A:0:V:10.1:3:1")
	writeCapture(t, path, []string{row1, row2})

	store, err := checkpoint.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Save("test", wire.ClassZ, int64(len(row1)+1)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fixed := func() time.Time { return time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC) }
	tl := New(Options{
		Template: filepath.Join(dir, "{ymd}_Z.txt"),
		Class:    wire.ClassZ,
		Key:      "test",
		Store:    store,
		Batch:    true,
		Now:      fixed,
	})

	var got []wire.Record
	if err := tl.Run(nil, func(r wire.Record) error {
		got = append(got, r)
		return nil
	}, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected to resume and read 1 remaining record, got %d", len(got))
	}
	if got[0].Payload != "Z:PETR4:A:0:V:10.1:3:1" {
		t.Fatalf("unexpected resumed payload %q", got[0].Payload)
	}
}

func TestTailerResetStateIgnoresCheckpoint(t *testing.T) {
	dir := t.TempDir()
	ymd := "20260731"
	path := filepath.Join(dir, ymd+"_Z.txt")
	row1 := captureRow(ymd, "Z:PETR4:A:0:A:10.0:5:1")
	writeCapture(t, path, []string{row1})

	store, _ := checkpoint.NewStore(t.TempDir())
	store.Save("test", wire.ClassZ, int64(len(row1)+1))

	fixed := func() time.Time { return time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC) }
	tl := New(Options{
		Template:   filepath.Join(dir, "{ymd}_Z.txt"),
		Class:      wire.ClassZ,
		Key:        "test",
		Store:      store,
		Batch:      true,
		ResetState: true,
		Now:        fixed,
	})

	var got []wire.Record
	tl.Run(nil, func(r wire.Record) error {
		got = append(got, r)
		return nil
	}, nil)
	if len(got) != 1 {
		t.Fatalf("expected reset-state to replay from 0, got %d records", len(got))
	}
}
