// Command vparser aggregates Cedro "V:" trade-print lines into
// OHLCV/VWAP bars with EMA trend and order-flow-delta signals, per
// §4.8 and §6.4.
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
	"github.com/gustavoferreira/cedrofeed/internal/tailer"
	"github.com/gustavoferreira/cedrofeed/internal/vagg"
	"github.com/gustavoferreira/cedrofeed/internal/wire"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	file := flag.String("file", "", "offline mode: path to a <date>_V.txt capture file")
	out := flag.String("out", "", "offline mode: output CSV path")
	live := flag.Bool("live", false, "live-tail mode")
	inputDir := flag.String("input-dir", "", "live mode: directory holding {ymd}_V.txt")
	inputTemplate := flag.String("input-template", "", "live mode: capture path template with {ymd}")
	outDir := flag.String("out-dir", "", "live mode: directory to write {ymd}_vbars.csv into")
	stateDir := flag.String("state-dir", "./data/state", "live mode: checkpoint directory")
	batch := flag.Bool("batch", false, "live mode: exit at EOF instead of polling")
	resetState := flag.Bool("reset-state", false, "live mode: ignore persisted checkpoint")
	pollMs := flag.Int("poll-ms", 200, "live mode: poll interval in milliseconds")

	def := vagg.DefaultConfig()
	barSec := flag.Int("bar-sec", def.BarSec, "bar width in seconds")
	emaFast := flag.Int("ema-fast", def.EmaFastPeriod, "fast VWAP EMA period in bars")
	emaSlow := flag.Int("ema-slow", def.EmaSlowPeriod, "slow VWAP EMA period in bars")
	emaDelta := flag.Int("ema-delta", def.EmaDeltaPeriod, "imbalance EMA period in bars")
	imbTh := flag.Float64("imb-th", def.ImbTh, "buy/sell imbalance threshold")
	deltaEmaTh := flag.Float64("delta-ema-th", def.DeltaEmaTh, "imbalance EMA threshold")
	minTrades := flag.Int("min-trades", def.MinTrades, "minimum trades in a bar before signaling")

	flag.Parse()

	cfg := vagg.Config{
		BarSec: *barSec,
		EmaFastPeriod: *emaFast, EmaSlowPeriod: *emaSlow, EmaDeltaPeriod: *emaDelta,
		ImbTh: *imbTh, DeltaEmaTh: *deltaEmaTh, MinTrades: *minTrades,
	}
	book := vagg.NewBook()

	var err error
	if *live {
		err = runLive(cfg, book, *inputDir, *inputTemplate, *outDir, *stateDir, *batch, *resetState, *pollMs)
	} else {
		err = runOffline(cfg, book, *file, *out)
	}
	if err != nil {
		log.Printf("vparser: %v", err)
		os.Exit(1)
	}
}

func timeForMs(day time.Time, ms int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, day.Location()).Add(time.Duration(ms) * time.Millisecond)
}

type driver struct {
	cfg  vagg.Config
	book *vagg.Book
	w    *csvio.Writer
	day  time.Time
	set  bool
}

func (d *driver) handle(rec wire.Record) error {
	if !d.set {
		d.day = rec.WriteTS
		d.set = true
	}
	sym, bar, emitted, late, handled := d.book.ProcessLine(d.cfg, rec.Payload)
	if !handled {
		return nil
	}
	if late {
		return nil
	}
	if emitted {
		ts := timeForMs(d.day, bar.BarStartMs).Format("20060102_150405")
		if err := d.w.WriteRow(bar.Strings(sym, ts, d.cfg.BarSec)); err != nil {
			return err
		}
		return d.w.Flush()
	}
	return nil
}

func (d *driver) finalFlush() error {
	for _, b := range d.book.Flush(d.cfg) {
		ts := timeForMs(d.day, b.Bar.BarStartMs).Format("20060102_150405")
		if err := d.w.WriteRow(b.Bar.Strings(b.Symbol, ts, d.cfg.BarSec)); err != nil {
			return err
		}
	}
	return d.w.Flush()
}

func runOffline(cfg vagg.Config, book *vagg.Book, file, out string) error {
	if file == "" || out == "" {
		return fmt.Errorf("--file and --out are required in offline mode")
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := csvio.Open(out, vagg.Header)
	if err != nil {
		return err
	}
	defer w.Close()

	d := &driver{cfg: cfg, book: book, w: w}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		rec, err := wire.ParseLine(line)
		if err != nil {
			log.Printf("vparser: skipping malformed row: %v", err)
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

func runLive(cfg vagg.Config, book *vagg.Book, inputDir, inputTemplate, outDir, stateDir string, batch, resetState bool, pollMs int) error {
	if outDir == "" {
		return fmt.Errorf("--out-dir is required in live mode")
	}
	template := inputTemplate
	if template == "" {
		if inputDir == "" {
			return fmt.Errorf("--input-dir or --input-template is required in live mode")
		}
		template = inputDir + "/{ymd}_V.txt"
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
	d := &driver{cfg: cfg, book: book}

	openFor := func(day string) error {
		if w != nil {
			w.Close()
		}
		nw, err := csvio.Open(outDir+"/"+day+"_vbars.csv", vagg.Header)
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
		Class:        wire.ClassV,
		Key:          "vparser",
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
