package engine

import (
	"math"
	"sync"

	"github.com/gustavoferreira/cedrofeed/internal/symbol"
)

const (
	baseDailyVol = 0.02  // 2% daily volatility
	classBlend   = 0.60  // 60% class shock, 40% idiosyncratic
	driftPerTick = 0.0   // zero drift for simulation
	ticksPerDay  = 86400 // approximate, for vol scaling
)

// MarketEngine drives GBM price movement with class-correlated returns
// (instruments sharing an AssetClass move together more than instruments
// that don't, standing in for the reference's sector correlation).
type MarketEngine struct {
	mu     sync.RWMutex
	rng    *RNG
	prices map[string]float64 // ticker -> current price
	syms   []symbol.Symbol
	byTick map[string]*symbol.Symbol

	// class shocks generated once per tick cycle
	classShocks map[symbol.AssetClass]float64
}

// NewMarketEngine creates a price engine for all symbols.
func NewMarketEngine(rng *RNG, syms []symbol.Symbol) *MarketEngine {
	prices := make(map[string]float64, len(syms))
	byTick := make(map[string]*symbol.Symbol, len(syms))
	for i := range syms {
		prices[syms[i].Ticker] = syms[i].BasePrice
		byTick[syms[i].Ticker] = &syms[i]
	}
	return &MarketEngine{
		rng:         rng,
		prices:      prices,
		syms:        syms,
		byTick:      byTick,
		classShocks: make(map[symbol.AssetClass]float64),
	}
}

// GenerateSectorShocks produces one gaussian shock per asset class.
// Call this once per tick cycle before ticking individual symbols.
func (m *MarketEngine) GenerateSectorShocks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cls := range symbol.Classes() {
		m.classShocks[cls] = m.rng.Gaussian()
	}
}

// Tick advances the price for a single symbol and returns the new price.
// GBM: S(t+1) = S(t) * exp(drift + vol * Z)
func (m *MarketEngine) Tick(ticker string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	sym := m.byTick[ticker]
	if sym == nil {
		return 0
	}

	price := m.prices[ticker]

	// Per-tick volatility: daily vol / sqrt(ticks_per_day) * symbol multiplier
	tickVol := baseDailyVol / math.Sqrt(ticksPerDay) * sym.VolatilityMultiplier

	// Blended shock: class + idiosyncratic
	classZ := m.classShocks[sym.Class]
	idioZ := m.rng.Gaussian()
	z := classBlend*classZ + (1-classBlend)*idioZ

	// GBM step
	logReturn := driftPerTick + tickVol*z
	price *= math.Exp(logReturn)

	// Snap to tick size, floor at 1 tick
	price = math.Round(price/sym.TickSize) * sym.TickSize
	if price < sym.TickSize {
		price = sym.TickSize
	}

	m.prices[ticker] = price
	return price
}

// Price returns the current price for a symbol.
func (m *MarketEngine) Price(ticker string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prices[ticker]
}

// SetPrice sets the price for a symbol (used when restoring from a
// checkpoint).
func (m *MarketEngine) SetPrice(ticker string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[ticker] = price
}

// AllPrices returns a snapshot of all current prices.
func (m *MarketEngine) AllPrices() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.prices))
	for k, v := range m.prices {
		out[k] = v
	}
	return out
}
