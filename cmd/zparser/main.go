// Command zparser reconstructs the Z (level-aggregated order book) feed
// into per-second CSV rows, one row per registered symbol per elapsed
// second (carry-forward "no_data" rows included), per §4.5/§4.9 and
// §6.4.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gustavoferreira/cedrofeed/internal/checkpoint"
	"github.com/gustavoferreira/cedrofeed/internal/csvio"
	"github.com/gustavoferreira/cedrofeed/internal/symbol"
	"github.com/gustavoferreira/cedrofeed/internal/tailer"
	"github.com/gustavoferreira/cedrofeed/internal/wire"
	"github.com/gustavoferreira/cedrofeed/internal/zbook"
)

const writeTSFormat = "20060102_150405"

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	file := flag.String("file", "", "offline mode: path to a <date>_Z.txt capture file")
	out := flag.String("out", "", "offline mode: output CSV path")
	live := flag.Bool("live", false, "live-tail mode")
	inputDir := flag.String("input-dir", "", "live mode: directory holding {ymd}_Z.txt")
	inputTemplate := flag.String("input-template", "", "live mode: capture path template with {ymd}, overrides --input-dir")
	outDir := flag.String("out-dir", "", "live mode: directory to write {ymd}_zbars.csv into")
	stateDir := flag.String("state-dir", "./data/state", "live mode: checkpoint directory")
	batch := flag.Bool("batch", false, "live mode: exit at EOF instead of polling")
	resetState := flag.Bool("reset-state", false, "live mode: ignore persisted checkpoint")
	pollMs := flag.Int("poll-ms", 200, "live mode: poll interval in milliseconds")

	symbolsCSV := flag.String("symbols", "", "comma-separated symbols to track (default: the full contract table)")
	depth := flag.Int("levels", zbook.DefaultDepth, "per-side book depth")
	topN := flag.Int("topn", zbook.DefaultTopN, "levels summed for imbalance")
	zwin := flag.Int("zwin", 300, "rolling z-score window in seconds")
	minWarmup := flag.Int("min-warmup", zbook.DefaultConfig().MinWarmup, "minimum warmup samples before signaling")
	scoreTh := flag.Float64("score-th", zbook.DefaultConfig().ScoreTh, "signal score threshold")
	persist := flag.Int("persist", zbook.DefaultConfig().PersistN, "consecutive-second persistence requirement")
	cooldownSec := flag.Int("cooldown-sec", zbook.DefaultConfig().CooldownSec, "seconds between repeat entries")

	flag.Parse()

	cfg := zbook.Config{MinWarmup: *minWarmup, ScoreTh: *scoreTh, RequireSign: true, PersistN: *persist, CooldownSec: *cooldownSec}

	syms := splitCSV(*symbolsCSV)
	if len(syms) == 0 {
		for _, s := range symbol.AllSymbols() {
			syms = append(syms, s.Ticker)
		}
	}
	books := zbook.NewBooks(syms, *depth, *zwin)

	var err error
	if *live {
		err = runLive(books, cfg, *topN, *inputDir, *inputTemplate, *outDir, *stateDir, *batch, *resetState, *pollMs)
	} else {
		err = runOffline(books, cfg, *topN, *file, *out)
	}
	if err != nil {
		log.Printf("zparser: %v", err)
		os.Exit(1)
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type driver struct {
	books   *zbook.Books
	cfg     zbook.Config
	topN    int
	w       *csvio.Writer
	offset  int64
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

// handle folds one record into the book registry and, if its second has
// advanced past the last swept one, sweeps every elapsed second (including
// ones with no activity at all, via zbook.Books.Sweep's "no_data" rows) in
// order, mirroring the reference's global per-second main loop.
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

	_, _ = d.books.Apply(rec.Payload)
	d.offset += int64(len(rec.Line())) + 1
	return nil
}

func (d *driver) emitSweep(sec int) error {
	ts := timeForSec(d.day, sec).Format(writeTSFormat)
	rows := d.books.Sweep(d.cfg, d.topN, sec)
	for _, r := range rows {
		row := zbook.Row(ts, ts, r.Symbol, r.Snap, r.Sig, r.Ctr, 0, d.offset, "")
		if err := d.w.WriteRow(row); err != nil {
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

func runOffline(books *zbook.Books, cfg zbook.Config, topN int, file, out string) error {
	if file == "" || out == "" {
		return fmt.Errorf("--file and --out are required in offline mode")
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := csvio.Open(out, zbook.Header)
	if err != nil {
		return err
	}
	defer w.Close()

	d := &driver{books: books, cfg: cfg, topN: topN, w: w}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		rec, err := wire.ParseLine(line)
		if err != nil {
			log.Printf("zparser: skipping malformed row: %v", err)
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

func runLive(books *zbook.Books, cfg zbook.Config, topN int, inputDir, inputTemplate, outDir, stateDir string, batch, resetState bool, pollMs int) error {
	if outDir == "" {
		return fmt.Errorf("--out-dir is required in live mode")
	}
	template := inputTemplate
	if template == "" {
		if inputDir == "" {
			return fmt.Errorf("--input-dir or --input-template is required in live mode")
		}
		template = inputDir + "/{ymd}_Z.txt"
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
	d := &driver{books: books, cfg: cfg, topN: topN}

	openFor := func(day string) error {
		if w != nil {
			w.Close()
		}
		path := outDir + "/" + day + "_zbars.csv"
		nw, err := csvio.Open(path, zbook.Header)
		if err != nil {
			return err
		}
		w = nw
		d.w = w
		curDay = day
		return nil
	}

	t := tailer.New(tailer.Options{
		Template:   template,
		Class:      wire.ClassZ,
		Key:        "zparser",
		Store:      store,
		Batch:      batch,
		ResetState: resetState,
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
