// Command tparser aggregates Cedro "T:" ticker update lines into
// per-second carry-forward CSV bars, one row per tracked symbol per
// elapsed second, per §4.7 and §6.4.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gustavoferreira/cedrofeed/internal/checkpoint"
	"github.com/gustavoferreira/cedrofeed/internal/csvio"
	"github.com/gustavoferreira/cedrofeed/internal/tagg"
	"github.com/gustavoferreira/cedrofeed/internal/tailer"
	"github.com/gustavoferreira/cedrofeed/internal/wire"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	file := flag.String("file", "", "offline mode: path to a <date>_T.txt capture file")
	out := flag.String("out", "", "offline mode: output CSV path")
	live := flag.Bool("live", false, "live-tail mode")
	inputDir := flag.String("input-dir", "", "live mode: directory holding {ymd}_T.txt")
	inputTemplate := flag.String("input-template", "", "live mode: capture path template with {ymd}")
	outDir := flag.String("out-dir", "", "live mode: directory to write {ymd}_tbars.csv into")
	stateDir := flag.String("state-dir", "./data/state", "live mode: checkpoint directory")
	batch := flag.Bool("batch", false, "live mode: exit at EOF instead of polling")
	resetState := flag.Bool("reset-state", false, "live mode: ignore persisted checkpoint")
	pollMs := flag.Int("poll-ms", 200, "live mode: poll interval in milliseconds")

	def := tagg.DefaultConfig()
	imbTh := flag.Float64("imb-th", def.ImbTh, "imbalance threshold")
	tickDirTh := flag.Int("tickdir-th", def.TickDirTh, "tick direction sum threshold")
	enterTh := flag.Float64("enter-th", def.EnterTh, "signal entry score threshold")
	keepTh := flag.Float64("keep-th", def.KeepTh, "signal keep (hysteresis) score threshold")

	flag.Parse()

	cfg := tagg.Config{ImbTh: *imbTh, TickDirTh: *tickDirTh, EnterTh: *enterTh, KeepTh: *keepTh}
	books := tagg.NewBooks()

	var err error
	if *live {
		err = runLive(books, cfg, *inputDir, *inputTemplate, *outDir, *stateDir, *batch, *resetState, *pollMs)
	} else {
		err = runOffline(books, cfg, *file, *out)
	}
	if err != nil {
		log.Printf("tparser: %v", err)
		os.Exit(1)
	}
}

type driver struct {
	books   *tagg.Books
	cfg     tagg.Config
	w       *csvio.Writer
	lastSec int
	haveSec bool
	day     time.Time
}

func secOfDay(t time.Time) int {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return int(t.Sub(midnight).Seconds())
}

func timeForSec(day time.Time, sec int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, day.Location()).Add(time.Duration(sec) * time.Second)
}

func (d *driver) handle(rec wire.Record) error {
	sec := secOfDay(rec.WriteTS)
	if !d.haveSec {
		d.lastSec = sec
		d.day = rec.WriteTS
		d.haveSec = true
	} else if sec > d.lastSec {
		for s := d.lastSec + 1; s <= sec; s++ {
			if err := d.emitSweep(s - 1); err != nil {
				return err
			}
		}
		d.lastSec = sec
	}
	d.books.ApplyMessage(rec.Payload)
	return nil
}

func (d *driver) emitSweep(sec int) error {
	ts := timeForSec(d.day, sec)
	rows := d.books.Sweep(d.cfg, ts, ts)
	for _, r := range rows {
		if err := d.w.WriteRow(r.Strings()); err != nil {
			return err
		}
	}
	return d.w.Flush()
}

func (d *driver) flush() error {
	if d.haveSec {
		return d.emitSweep(d.lastSec)
	}
	return nil
}

func runOffline(books *tagg.Books, cfg tagg.Config, file, out string) error {
	if file == "" || out == "" {
		return fmt.Errorf("--file and --out are required in offline mode")
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := csvio.Open(out, tagg.Header)
	if err != nil {
		return err
	}
	defer w.Close()

	d := &driver{books: books, cfg: cfg, w: w}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		rec, err := wire.ParseLine(line)
		if err != nil {
			log.Printf("tparser: skipping malformed row: %v", err)
			continue
		}
		if err := d.handle(rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		return err
	}
	return d.flush()
}

func runLive(books *tagg.Books, cfg tagg.Config, inputDir, inputTemplate, outDir, stateDir string, batch, resetState bool, pollMs int) error {
	if outDir == "" {
		return fmt.Errorf("--out-dir is required in live mode")
	}
	template := inputTemplate
	if template == "" {
		if inputDir == "" {
			return fmt.Errorf("--input-dir or --input-template is required in live mode")
		}
		template = inputDir + "/{ymd}_T.txt"
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	store, err := checkpoint.NewStore(stateDir)
	if err != nil {
		return err
	}

	var w *csvio.Writer
	var curDay string
	d := &driver{books: books, cfg: cfg}

	openFor := func(day string) error {
		if w != nil {
			w.Close()
		}
		nw, err := csvio.Open(outDir+"/"+day+"_tbars.csv", tagg.Header)
		if err != nil {
			return err
		}
		w = nw
		d.w = w
		curDay = day
		return nil
	}

	t := tailer.New(tailer.Options{
		Template:     template,
		Class:        wire.ClassT,
		Key:          "tparser",
		Store:        store,
		Batch:        batch,
		ResetState:   resetState,
		PollInterval: time.Duration(pollMs) * time.Millisecond,
	})

	done := make(chan struct{})
	err = t.Run(done, func(rec wire.Record) error {
		day := rec.Day()
		if day != curDay {
			if err := openFor(day); err != nil {
				return err
			}
		}
		return d.handle(rec)
	}, func() error {
		if err := d.flush(); err != nil {
			return err
		}
		d.haveSec = false
		return nil
	})
	if w != nil {
		d.flush()
		w.Close()
	}
	return err
}
