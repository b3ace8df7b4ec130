package rebuild

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func row(ts, bytesN, deltaMs, payload string) string {
	return ts + "," + bytesN + "," + deltaMs + "," + payload
}

func TestRunRoutesByClass(t *testing.T) {
	dir := t.TempDir()
	raw := strings.Join([]string{
		row("20260310_090000", "10", "0", "B:PETR4:A:0:A:10.0:5:1"),
		row("20260310_090001", "10", "5", "V:PETR4:A:093005123:10.0:1:2:5:1:0:A:0"),
	}, "\n") + "\n"

	stats, err := Run(strings.NewReader(raw), dir, "20260310", false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.PerClass['B'] != 1 || stats.PerClass['V'] != 1 {
		t.Fatalf("unexpected per-class counts: %+v", stats.PerClass)
	}

	data, err := os.ReadFile(filepath.Join(dir, "20260310_B.txt"))
	if err != nil {
		t.Fatalf("read B file: %v", err)
	}
	if !strings.Contains(string(data), "B:PETR4:A:0:A:10.0:5:1") {
		t.Fatalf("expected B row in output, got %q", data)
	}
}

func TestRunRejoinsContinuationLine(t *testing.T) {
	dir := t.TempDir()
	raw := strings.Join([]string{
		row("20260310_090000", "5", "0", "B:PETR4:A:0:A:10.0:5"),
		row("20260310_090000", "3", "0", ":1"),
	}, "\n") + "\n"

	stats, err := Run(strings.NewReader(raw), dir, "20260310", false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Rejoined != 1 {
		t.Fatalf("expected one rejoined continuation, got %d", stats.Rejoined)
	}

	data, err := os.ReadFile(filepath.Join(dir, "20260310_B.txt"))
	if err != nil {
		t.Fatalf("read B file: %v", err)
	}
	if !strings.Contains(string(data), "B:PETR4:A:0:A:10.0:5:1") {
		t.Fatalf("expected rejoined payload, got %q", data)
	}
}

func TestRunRoutesOrphanWhenNoPending(t *testing.T) {
	dir := t.TempDir()
	raw := row("20260310_090000", "3", "0", ":1") + "\n"

	stats, err := Run(strings.NewReader(raw), dir, "20260310", false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Orphaned != 1 {
		t.Fatalf("expected orphan count 1, got %d", stats.Orphaned)
	}
}

func TestRunOverwriteTruncatesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "20260310_B.txt")
	if err := os.WriteFile(path, []byte("stale\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	raw := row("20260310_090000", "5", "0", "B:PETR4:A:0:A:10.0:5:1") + "\n"
	if _, err := Run(strings.NewReader(raw), dir, "20260310", true); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "stale") {
		t.Fatal("expected overwrite to truncate prior content")
	}
}
