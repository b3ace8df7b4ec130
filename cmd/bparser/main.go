// Command bparser reconstructs the B (order-granularity) book and emits
// one bar row per symbol each time that symbol's own next event crosses
// into a later bar window, per §4.6 and §6.4.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gustavoferreira/cedrofeed/internal/bbook"
	"github.com/gustavoferreira/cedrofeed/internal/checkpoint"
	"github.com/gustavoferreira/cedrofeed/internal/csvio"
	"github.com/gustavoferreira/cedrofeed/internal/tailer"
	"github.com/gustavoferreira/cedrofeed/internal/wire"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	file := flag.String("file", "", "offline mode: path to a <date>_B.txt capture file")
	out := flag.String("out", "", "offline mode: output CSV path")
	live := flag.Bool("live", false, "live-tail mode")
	inputDir := flag.String("input-dir", "", "live mode: directory holding {ymd}_B.txt")
	inputTemplate := flag.String("input-template", "", "live mode: capture path template with {ymd}")
	outDir := flag.String("out-dir", "", "live mode: directory to write {ymd}_bbars.csv into")
	stateDir := flag.String("state-dir", "./data/state", "live mode: checkpoint directory")
	batch := flag.Bool("batch", false, "live mode: exit at EOF instead of polling")
	resetState := flag.Bool("reset-state", false, "live mode: ignore persisted checkpoint")
	pollMs := flag.Int("poll-ms", 200, "live mode: poll interval in milliseconds")

	def := bbook.DefaultBarConfig()
	barSec := flag.Int("bar-sec", def.BarSec, "bar width in seconds")
	levels := flag.Int("levels", def.LevelsL, "levels summed for the level imbalance feature")
	bookCap := flag.Int("book-cap", 200, "per-side order array capacity")
	imbTh := flag.Float64("imb-th", def.ImbTh, "level imbalance EMA threshold")
	ofiTh := flag.Float64("ofi-th", def.OfiTh, "order flow imbalance EMA threshold")
	emaFast := flag.Int("ema-fast", def.EmaFastPeriod, "fast EMA period in bars")
	emaSlow := flag.Int("ema-slow", def.EmaSlowPeriod, "slow EMA period in bars")
	emaImb := flag.Int("ema-imb", def.EmaImbPeriod, "imbalance EMA period in bars")
	emaOfi := flag.Int("ema-ofi", def.EmaOfiPeriod, "OFI EMA period in bars")
	minEvents := flag.Int("min-events", def.MinEvents, "minimum events in a bar before signaling")

	flag.Parse()

	cfg := bbook.BarConfig{
		BarSec: *barSec, LevelsL: *levels,
		EmaFastPeriod: *emaFast, EmaSlowPeriod: *emaSlow,
		EmaImbPeriod: *emaImb, EmaOfiPeriod: *emaOfi,
		ImbTh: *imbTh, OfiTh: *ofiTh, MinEvents: *minEvents,
	}
	books := bbook.NewBooks(cfg, *bookCap)

	var err error
	if *live {
		err = runLive(books, *inputDir, *inputTemplate, *outDir, *stateDir, *batch, *resetState, *pollMs)
	} else {
		err = runOffline(books, *file, *out)
	}
	if err != nil {
		log.Printf("bparser: %v", err)
		os.Exit(1)
	}
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

type driver struct {
	books *bbook.Books
	w     *csvio.Writer
	day   time.Time
	set   bool
}

func (d *driver) handle(rec wire.Record) error {
	if !d.set {
		d.day = rec.WriteTS
		d.set = true
	}
	sym, closed, emitted, handled := d.books.ProcessLine(rec.Payload, secOfDay(rec.WriteTS))
	if !handled {
		return nil
	}
	if emitted {
		ts := timeForSec(d.day, closed.BarStartSec).Format("20060102_150405")
		if err := d.w.WriteRow(closed.Strings(sym, ts)); err != nil {
			return err
		}
		return d.w.Flush()
	}
	return nil
}

func (d *driver) finalFlush() error {
	for _, b := range d.books.Flush() {
		ts := timeForSec(d.day, b.Bar.BarStartSec).Format("20060102_150405")
		if err := d.w.WriteRow(b.Bar.Strings(b.Symbol, ts)); err != nil {
			return err
		}
	}
	return d.w.Flush()
}

func runOffline(books *bbook.Books, file, out string) error {
	if file == "" || out == "" {
		return fmt.Errorf("--file and --out are required in offline mode")
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := csvio.Open(out, bbook.Header)
	if err != nil {
		return err
	}
	defer w.Close()

	d := &driver{books: books, w: w}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		rec, err := wire.ParseLine(line)
		if err != nil {
			log.Printf("bparser: skipping malformed row: %v", err)
			continue
		}
		if err := d.handle(rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		return err
	}
	return d.finalFlush()
}

func runLive(books *bbook.Books, inputDir, inputTemplate, outDir, stateDir string, batch, resetState bool, pollMs int) error {
	if outDir == "" {
		return fmt.Errorf("--out-dir is required in live mode")
	}
	template := inputTemplate
	if template == "" {
		if inputDir == "" {
			return fmt.Errorf("--input-dir or --input-template is required in live mode")
		}
		template = inputDir + "/{ymd}_B.txt"
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
	d := &driver{books: books}

	openFor := func(day string) error {
		if w != nil {
			w.Close()
		}
		nw, err := csvio.Open(outDir+"/"+day+"_bbars.csv", bbook.Header)
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
		Class:        wire.ClassB,
		Key:          "bparser",
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
		return d.finalFlush()
	})
	if w != nil {
		d.finalFlush()
		w.Close()
	}
	return err
}
