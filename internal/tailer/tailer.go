// Package tailer follows an append-only capture file from a checkpointed
// offset, across day rollovers and truncations, feeding parsed records to
// a per-class reconstructor/aggregator.
package tailer

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gustavoferreira/cedrofeed/internal/checkpoint"
	"github.com/gustavoferreira/cedrofeed/internal/wire"
)

// DefaultPollInterval is the sleep between EOF retries in live mode.
const DefaultPollInterval = 200 * time.Millisecond

// DefaultCheckpointInterval bounds how often the offset is persisted.
const DefaultCheckpointInterval = 1 * time.Second

// Options configures a Tailer.
type Options struct {
	// Template is the capture file path with a "{ymd}" placeholder, e.g.
	// "/data/capture/{ymd}_Z.txt".
	Template string
	Class    byte
	// Key identifies this tailer's checkpoint namespace (distinct tailers
	// of the same class, e.g. two instruments tracked separately, would
	// use distinct keys; normally one process runs one tailer per class).
	Key   string
	Store *checkpoint.Store

	PollInterval       time.Duration
	CheckpointInterval time.Duration

	// Batch exits at EOF instead of polling forever (offline/rebuild use).
	Batch bool
	// ResetState ignores any persisted checkpoint and starts fresh.
	ResetState bool
	// Now returns the current time; defaults to time.Now. Tests substitute
	// a fixed/advancing clock to control day-rollover behavior.
	Now func() time.Time
}

// Tailer follows one class's daily capture files.
type Tailer struct {
	opts Options

	date     string
	f        *os.File
	r        *bufio.Reader
	offset   int64
	lastSize int64

	lastCkpt time.Time
}

// New creates a Tailer from opts, filling defaults.
func New(opts Options) *Tailer {
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.CheckpointInterval == 0 {
		opts.CheckpointInterval = DefaultCheckpointInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tailer{opts: opts}
}

func (t *Tailer) pathFor(ymd string) string {
	return strings.ReplaceAll(t.opts.Template, "{ymd}", ymd)
}

func (t *Tailer) currentYMD() string {
	return t.opts.Now().In(wire.SaoPaulo).Format("20060102")
}

// OnLine is called for every parsed record in file order.
type OnLine func(wire.Record) error

// OnRollover is called once the active day's file is exhausted at EOF and a
// new day's file is about to start, so the caller can flush residual bars
// before the new day begins.
type OnRollover func() error

// Run drives the tailer until ctx-like done fires (checked between
// records) or, in batch mode, until EOF. onLine is invoked for every
// record; onRollover before switching to a new day's file.
func (t *Tailer) Run(done <-chan struct{}, onLine OnLine, onRollover OnRollover) error {
	if err := t.openForDate(t.currentYMD()); err != nil {
		return err
	}
	defer t.closeAndCheckpoint()

	for {
		select {
		case <-done:
			return nil
		default:
		}

		line, err := t.r.ReadString('\n')
		if len(line) > 0 && err == nil {
			if perr := t.handleLine(line, onLine); perr != nil {
				log.Printf("tailer[%c]: %v", t.opts.Class, perr)
			}
			t.maybeCheckpoint()
			continue
		}
		if len(line) > 0 && err != nil {
			// Partial trailing line with no terminator yet: rewind to the end
			// of the last complete line so it is re-read whole later.
			if _, serr := t.f.Seek(t.offset, 0); serr != nil {
				return fmt.Errorf("tailer[%c]: rewind partial line: %w", t.opts.Class, serr)
			}
			t.r.Reset(t.f)
		}

		if t.opts.Batch {
			t.saveCheckpoint()
			return nil
		}

		if rolled, rerr := t.checkRollover(onRollover); rerr != nil {
			return rerr
		} else if rolled {
			continue
		}
		if terr := t.checkTruncation(); terr != nil {
			return terr
		}

		time.Sleep(t.opts.PollInterval)
	}
}

func (t *Tailer) handleLine(line string, onLine OnLine) error {
	line = strings.TrimRight(line, "\n")
	t.offset += int64(len(line)) + 1
	if line == "" {
		return nil
	}
	rec, err := wire.ParseLine(line)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return onLine(rec)
}

func (t *Tailer) checkRollover(onRollover OnRollover) (bool, error) {
	ymd := t.currentYMD()
	if ymd == t.date {
		return false, nil
	}
	if onRollover != nil {
		if err := onRollover(); err != nil {
			return false, fmt.Errorf("tailer[%c]: rollover flush: %w", t.opts.Class, err)
		}
	}
	t.saveCheckpoint()
	if err := t.openForDate(ymd); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Tailer) checkTruncation() error {
	info, err := os.Stat(t.f.Name())
	if err != nil {
		return nil // transient stat failure; retry next poll
	}
	if info.Size() < t.lastSize {
		log.Printf("tailer[%c]: truncation detected on %s, reopening from end", t.opts.Class, t.f.Name())
		t.f.Close()
		f, err := os.Open(t.f.Name())
		if err != nil {
			return fmt.Errorf("tailer[%c]: reopen after truncation: %w", t.opts.Class, err)
		}
		if _, err := f.Seek(info.Size(), 0); err != nil {
			return fmt.Errorf("tailer[%c]: seek after truncation: %w", t.opts.Class, err)
		}
		t.f = f
		t.r = bufio.NewReader(f)
		t.offset = info.Size()
	}
	t.lastSize = info.Size()
	return nil
}

func (t *Tailer) openForDate(ymd string) error {
	path := t.pathFor(ymd)

	var start int64
	if !t.opts.ResetState && t.opts.Store != nil {
		if off, ok, err := t.opts.Store.Load(t.opts.Key, t.opts.Class); err == nil && ok {
			start = off
		}
	}

	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("tailer[%c]: open %s: %w", t.opts.Class, path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("tailer[%c]: stat %s: %w", t.opts.Class, path, err)
	}

	if start == 0 && !t.opts.Batch {
		// Fresh live start with no checkpoint: begin at EOF rather than
		// replaying the whole day, per §4.4.
		start = info.Size()
	}
	if start > info.Size() {
		start = 0
	}
	if _, err := f.Seek(start, 0); err != nil {
		f.Close()
		return fmt.Errorf("tailer[%c]: seek %s: %w", t.opts.Class, path, err)
	}

	t.f = f
	t.r = bufio.NewReader(f)
	t.date = ymd
	t.offset = start
	t.lastSize = info.Size()
	t.lastCkpt = time.Time{}
	return nil
}

func (t *Tailer) maybeCheckpoint() {
	if t.opts.Store == nil {
		return
	}
	if time.Since(t.lastCkpt) < t.opts.CheckpointInterval {
		return
	}
	t.saveCheckpoint()
}

func (t *Tailer) saveCheckpoint() {
	if t.opts.Store == nil {
		return
	}
	if err := t.opts.Store.Save(t.opts.Key, t.opts.Class, t.offset); err != nil {
		log.Printf("tailer[%c]: checkpoint save failed: %v", t.opts.Class, err)
		return
	}
	t.lastCkpt = time.Now()
}

func (t *Tailer) closeAndCheckpoint() {
	t.saveCheckpoint()
	if t.f != nil {
		t.f.Close()
	}
}
