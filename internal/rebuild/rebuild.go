// Package rebuild implements the offline capture-file rebuild mode
// (§6.5): re-demultiplexing a single <date>_raw_data.txt into per-class
// files, re-joining any TCP-split lines along the way.
package rebuild

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gustavoferreira/cedrofeed/internal/wire"
)

// Stats counts what the rebuild did, for the caller to log.
type Stats struct {
	Total, Rejoined, Orphaned int
	PerClass                 map[byte]int
}

// Run reads raw from r (lines in the four-column capture format) and
// writes <date>_{B,V,T,Z}.txt and <date>_orphans.txt under dir. date
// names the output files; overwrite truncates existing files instead of
// appending to them.
func Run(r io.Reader, dir, date string, overwrite bool) (Stats, error) {
	stats := Stats{PerClass: make(map[byte]int)}

	writers := make(map[byte]*rowWriter)
	defer func() {
		for _, w := range writers {
			w.close()
		}
	}()

	openClass := func(cls byte, suffix string) (*rowWriter, error) {
		if w, ok := writers[cls]; ok {
			return w, nil
		}
		w, err := newRowWriter(filepath.Join(dir, fmt.Sprintf("%s_%s.txt", date, suffix)), overwrite)
		if err != nil {
			return nil, err
		}
		writers[cls] = w
		return w, nil
	}

	orphans, err := openClass(0, "orphans")
	if err != nil {
		return stats, err
	}

	var pending *wire.Record
	var pendingCls byte

	flushPending := func() error {
		if pending == nil {
			return nil
		}
		w, err := openClass(pendingCls, string(pendingCls))
		if err != nil {
			return err
		}
		if err := w.writeRecord(*pending); err != nil {
			return err
		}
		stats.PerClass[pendingCls]++
		pending = nil
		return nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		stats.Total++

		rec, err := wire.ParseLine(line)
		if err != nil {
			if err := orphans.writeLine(line); err != nil {
				return stats, err
			}
			stats.Orphaned++
			continue
		}

		if cls := rec.Class(); cls != wire.ClassOther {
			if err := flushPending(); err != nil {
				return stats, err
			}
			pending = &rec
			pendingCls = cls
			continue
		}

		// Continuation line: payload lacks a recognized class prefix.
		if pending != nil {
			pending.Payload += rec.Payload
			stats.Rejoined++
			continue
		}
		if err := orphans.writeLine(line); err != nil {
			return stats, err
		}
		stats.Orphaned++
	}
	if err := sc.Err(); err != nil {
		return stats, err
	}
	if err := flushPending(); err != nil {
		return stats, err
	}

	return stats, nil
}

type rowWriter struct {
	f *os.File
	w *bufio.Writer
}

func newRowWriter(path string, overwrite bool) (*rowWriter, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if overwrite {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return &rowWriter{f: f, w: bufio.NewWriterSize(f, 64*1024)}, nil
}

func (rw *rowWriter) writeRecord(rec wire.Record) error {
	return rw.writeLine(rec.Line())
}

func (rw *rowWriter) writeLine(line string) error {
	if _, err := rw.w.WriteString(line); err != nil {
		return err
	}
	return rw.w.WriteByte('\n')
}

func (rw *rowWriter) close() error {
	if err := rw.w.Flush(); err != nil {
		rw.f.Close()
		return err
	}
	return rw.f.Close()
}
