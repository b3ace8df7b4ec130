// Package capture demultiplexes framed records by class into per-day,
// per-class append-only files, plus a unified raw file, batching writes and
// rotating files at exchange-local midnight.
package capture

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gustavoferreira/cedrofeed/internal/wire"
)

// BatchThreshold is the number of pending lines that forces a flush.
const BatchThreshold = 10

// FlushInterval is the maximum time a batch sits unflushed.
const FlushInterval = 5 * time.Second

// Demultiplexer routes framed records to per-class capture files.
type Demultiplexer struct {
	dir string

	mu      sync.Mutex
	date    string
	raw     *fileWriter
	classes map[byte]*fileWriter
}

// NewDemultiplexer creates a Demultiplexer writing under dir. Files are
// opened lazily on the first Ingest call for the active date.
func NewDemultiplexer(dir string) *Demultiplexer {
	return &Demultiplexer{
		dir:     dir,
		classes: make(map[byte]*fileWriter),
	}
}

// Ingest routes one record to the raw file and, when recognized, to its
// class file. Returns an error only after the reopen-once retry also fails;
// the caller (session manager) logs and continues per spec's at-least-once
// policy — the batch stays buffered for the next successful flush.
func (d *Demultiplexer) Ingest(rec wire.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	day := rec.Day()
	if d.date != "" && day != d.date {
		if err := d.rotateLocked(); err != nil {
			return err
		}
	}
	d.date = day

	if err := d.ensureOpenLocked(); err != nil {
		return err
	}

	line := rec.Line()
	if err := d.raw.append(line); err != nil {
		return fmt.Errorf("capture: raw append: %w", err)
	}

	if class := rec.Class(); class != wire.ClassOther {
		if err := d.classes[class].append(line); err != nil {
			return fmt.Errorf("capture: %c append: %w", class, err)
		}
	}

	if d.raw.pending >= BatchThreshold {
		return d.flushAllLocked()
	}
	for _, fw := range d.classes {
		if fw.pending >= BatchThreshold {
			return d.flushAllLocked()
		}
	}
	return nil
}

// Run flushes pending batches every FlushInterval until done is closed,
// then performs a final flush. Run the demultiplexer's own goroutine.
func (d *Demultiplexer) Run(done <-chan struct{}) {
	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			if err := d.FlushAll(); err != nil {
				log.Printf("capture: final flush error: %v", err)
			}
			return
		case <-ticker.C:
			if err := d.FlushAll(); err != nil {
				log.Printf("capture: periodic flush error: %v", err)
			}
		}
	}
}

// FlushAll flushes every open writer.
func (d *Demultiplexer) FlushAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushAllLocked()
}

func (d *Demultiplexer) flushAllLocked() error {
	var firstErr error
	if d.raw != nil {
		if err := d.raw.flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, fw := range d.classes {
		if err := fw.flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Demultiplexer) ensureOpenLocked() error {
	if d.raw == nil {
		fw, err := newFileWriter(filepath.Join(d.dir, fmt.Sprintf("%s_raw_data.txt", d.date)))
		if err != nil {
			return err
		}
		d.raw = fw
	}
	for _, c := range []byte{wire.ClassB, wire.ClassV, wire.ClassT, wire.ClassZ} {
		if _, ok := d.classes[c]; ok {
			continue
		}
		fw, err := newFileWriter(filepath.Join(d.dir, fmt.Sprintf("%s_%c.txt", d.date, c)))
		if err != nil {
			return err
		}
		d.classes[c] = fw
	}
	return nil
}

func (d *Demultiplexer) rotateLocked() error {
	if err := d.flushAllLocked(); err != nil {
		log.Printf("capture: flush before rollover: %v", err)
	}
	if d.raw != nil {
		d.raw.close()
		d.raw = nil
	}
	for c, fw := range d.classes {
		fw.close()
		delete(d.classes, c)
	}
	return nil
}

// fileWriter is a single-writer append-only file with a buffered writer and
// a reopen-once-on-error policy.
type fileWriter struct {
	path    string
	f       *os.File
	w       *bufio.Writer
	pending int
}

func newFileWriter(path string) (*fileWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", path, err)
	}
	return &fileWriter{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

func (fw *fileWriter) append(line string) error {
	if _, err := fw.w.WriteString(line); err != nil {
		return fw.retryAppend(line, err)
	}
	if err := fw.w.WriteByte('\n'); err != nil {
		return fw.retryAppend(line, err)
	}
	fw.pending++
	return nil
}

func (fw *fileWriter) retryAppend(line string, cause error) error {
	log.Printf("capture: write to %s failed (%v), reopening once", fw.path, cause)
	if err := fw.reopen(); err != nil {
		return fmt.Errorf("capture: reopen %s after write failure: %w", fw.path, err)
	}
	if _, err := fw.w.WriteString(line); err != nil {
		return fmt.Errorf("capture: write %s after reopen: %w", fw.path, err)
	}
	fw.w.WriteByte('\n')
	fw.pending++
	return nil
}

func (fw *fileWriter) reopen() error {
	if fw.f != nil {
		fw.f.Close()
	}
	f, err := os.OpenFile(fw.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	fw.f = f
	fw.w = bufio.NewWriter(f)
	return nil
}

func (fw *fileWriter) flush() error {
	if fw.pending == 0 {
		return nil
	}
	if err := fw.w.Flush(); err != nil {
		return fmt.Errorf("capture: flush %s: %w", fw.path, err)
	}
	fw.pending = 0
	return nil
}

func (fw *fileWriter) close() {
	fw.w.Flush()
	fw.f.Close()
}
