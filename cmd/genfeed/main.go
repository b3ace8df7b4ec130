package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gustavoferreira/cedrofeed/internal/genfeed"
	"github.com/gustavoferreira/cedrofeed/internal/symbol"
)

func main() {
	symbolsFlag := flag.String("symbols", "", "comma-separated tickers to generate (default: all tracked symbols)")
	listen := flag.String("listen", ":7799", "address to accept session connections on")
	seed := flag.Int64("seed", 0, "PRNG seed (0 = time-derived)")
	tickMs := flag.Int("tick-ms", 250, "tick interval in milliseconds for non-stress symbols")
	outDir := flag.String("out-dir", "", "write lines to <out-dir>/<ticker>.txt instead of listening")
	stressSymbol := flag.String("stress-symbol", "WINQ26", "ticker that runs the variable-rate stress controller instead of the fixed tick")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("genfeed starting")

	syms := symbol.AllSymbols()
	if *symbolsFlag != "" {
		want := make(map[string]bool)
		for _, t := range strings.Split(*symbolsFlag, ",") {
			want[strings.TrimSpace(t)] = true
		}
		filtered := syms[:0]
		for _, s := range syms {
			if want[s.Ticker] {
				filtered = append(filtered, s)
			}
		}
		syms = filtered
	}
	if len(syms) == 0 {
		log.Fatal("genfeed: no symbols selected")
	}
	log.Printf("genfeed: tracking %d symbols", len(syms))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("genfeed: received signal %v, shutting down", sig)
		cancel()
	}()

	runner := genfeed.NewRunner(*seed, syms, *stressSymbol)

	var sink genfeed.Sink
	var wg sync.WaitGroup

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatalf("genfeed: create out-dir: %v", err)
		}
		files := make(map[string]*os.File, len(syms))
		var mu sync.Mutex
		for _, s := range syms {
			f, err := os.OpenFile(filepath.Join(*outDir, s.Ticker+".txt"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				log.Fatalf("genfeed: open %s: %v", s.Ticker, err)
			}
			defer f.Close()
			files[s.Ticker] = f
		}
		sink = func(lines []string) {
			if len(lines) == 0 {
				return
			}
			sym := tickerOf(lines[0])
			f := files[sym]
			if f == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, l := range lines {
				if _, err := f.WriteString(l + "\n"); err != nil {
					log.Printf("genfeed: write %s: %v", sym, err)
				}
			}
		}
		log.Printf("genfeed: writing to %s", *outDir)
	} else {
		hub := genfeed.NewHub()
		srv := genfeed.NewServer(*listen, "cedro", "cedro", hub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx); err != nil {
				log.Printf("genfeed: server stopped: %v", err)
			}
		}()
		sink = hub.Broadcast
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runner.Run(ctx, time.Duration(*tickMs)*time.Millisecond, sink)
	}()

	<-ctx.Done()
	wg.Wait()
	log.Println("genfeed stopped")
}

// tickerOf extracts the symbol field from a Cedro-syntax line, e.g.
// "Z:PETR4:A:0:..." -> "PETR4".
func tickerOf(line string) string {
	parts := strings.SplitN(line, ":", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
