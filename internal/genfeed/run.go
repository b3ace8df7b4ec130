package genfeed

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gustavoferreira/cedrofeed/internal/engine"
	"github.com/gustavoferreira/cedrofeed/internal/symbol"
	"github.com/gustavoferreira/cedrofeed/internal/wire"
)

// Sink receives the lines one symbol's tick produced, in emission order.
type Sink func(lines []string)

// Runner drives every tracked symbol's price process, stress controller
// (one designated symbol runs a StressController instead of the fixed-
// interval tick, to exercise the variable-rate stress path), and order-
// book simulator, handing each tick's emitted lines to a Sink.
type Runner struct {
	rng    *engine.RNG
	market *engine.MarketEngine
	sims   map[string]*Simulator
	stress map[string]*engine.StressController
	syms   []symbol.Symbol
}

// NewRunner builds a runner over syms, seeding one simulator per symbol
// from its configured depth/book-cap/base price (internal/symbol.Symbol).
func NewRunner(seed int64, syms []symbol.Symbol, stressTicker string) *Runner {
	rng := engine.NewRNG(seed)
	market := engine.NewMarketEngine(rng, syms)

	sims := make(map[string]*Simulator, len(syms))
	stress := make(map[string]*engine.StressController)
	for _, s := range syms {
		sims[s.Ticker] = NewSimulator(rng, s.TickSize, s.BookDepth, s.ArrayCap, s.Ticker, s.BasePrice)
		if s.Ticker == stressTicker {
			stress[s.Ticker] = engine.NewStressController(rng, engine.DefaultStressConfig())
		}
	}

	return &Runner{rng: rng, market: market, sims: sims, stress: stress, syms: syms}
}

// Run drives every non-stress symbol on a shared fixed-interval ticker
// and spawns one independent variable-rate loop per stress symbol,
// blocking until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, tickInterval time.Duration, sink Sink) {
	var wg sync.WaitGroup

	for ticker := range r.stress {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			r.runStress(ctx, ticker, sink)
		}(ticker)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.runFixed(ctx, tickInterval, sink)
	}()

	wg.Wait()
}

// runFixed advances every non-stress symbol once per tickInterval.
func (r *Runner) runFixed(ctx context.Context, tickInterval time.Duration, sink Sink) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.market.GenerateSectorShocks()
			now := time.Now().In(wire.SaoPaulo)
			for _, s := range r.syms {
				if _, stressed := r.stress[s.Ticker]; stressed {
					continue
				}
				numActions := 1 + r.rng.Intn(3)
				price := r.market.Tick(s.Ticker)
				lines := r.sims[s.Ticker].Step(now, price, numActions)
				sink(lines)
			}
		}
	}
}

// runStress drives a single stress symbol at the variable interval its
// StressController picks, logging phase transitions along the way.
func (r *Runner) runStress(ctx context.Context, ticker string, sink Sink) {
	ctrl := r.stress[ticker]
	lastPhaseLog := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		interval, numActions := ctrl.Tick()
		if time.Since(lastPhaseLog) > 5*time.Second {
			log.Printf("genfeed: %s phase=%s intensity=%.2f interval=%v actions=%d",
				ticker, ctrl.Phase(), ctrl.Intensity(), interval, numActions)
			lastPhaseLog = time.Now()
		}

		r.market.GenerateSectorShocks()
		now := time.Now().In(wire.SaoPaulo)
		price := r.market.Tick(ticker)
		lines := r.sims[ticker].Step(now, price, numActions)
		sink(lines)

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// Simulators exposes the per-symbol simulators, e.g. for a monitor view.
func (r *Runner) Simulators() map[string]*Simulator { return r.sims }
