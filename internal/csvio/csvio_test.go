package csvio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bars.csv")

	w, err := Open(path, []string{"a", "b"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := w.WriteRow([]string{"1", "2"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	w2, err := Open(path, []string{"a", "b"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := w2.WriteRow([]string{"3", "4"}); err != nil {
		t.Fatalf("write2: %v", err)
	}
	if err := w2.Close(); err != nil {
		t.Fatalf("close2: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "a,b\n1,2\n3,4\n"
	if string(data) != want {
		t.Fatalf("expected %q, got %q", want, string(data))
	}
}
