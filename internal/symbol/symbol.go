// Package symbol holds the static contract table the pipeline runs over.
//
// Cedro identifies an instrument by its current exchange ticker (e.g.
// "PETR4", "WINQ26"); this package does not compute which contract is
// "current" for a rolling future — that is an external collaborator
// (an exchange calendar) that simply hands this pipeline a ticker string.
package symbol

// AssetClass groups symbols by the kind of instrument, which drives
// defaults for tick size and book depth.
type AssetClass string

const (
	ClassEquity     AssetClass = "equity"
	ClassIndexFut   AssetClass = "index_future"
	ClassRateFut    AssetClass = "rate_future"
	ClassFXFut      AssetClass = "fx_future"
	ClassCommodity  AssetClass = "commodity_future"
)

// Symbol holds metadata for a tracked instrument.
type Symbol struct {
	Ticker    string
	Name      string
	Class     AssetClass
	TickSize  float64
	// BookDepth bounds how many price levels the Z reconstructor keeps.
	BookDepth int
	// ArrayCap bounds the B reconstructor's per-side order array.
	ArrayCap int
	// BasePrice seeds the synthetic generator's GBM walk for this
	// instrument (§4.13).
	BasePrice float64
	// VolatilityMultiplier scales the generator's per-tick GBM shock
	// relative to the class baseline.
	VolatilityMultiplier float64
}

// AllSymbols returns the tracked contract table.
func AllSymbols() []Symbol {
	return []Symbol{
		{"PETR4", "Petrobras PN", ClassEquity, 0.01, 10, 200, 38.50, 1.1},
		{"VALE3", "Vale ON", ClassEquity, 0.01, 10, 200, 62.30, 1.0},
		{"ITUB4", "Itau Unibanco PN", ClassEquity, 0.01, 10, 200, 33.80, 0.9},
		{"BBDC4", "Bradesco PN", ClassEquity, 0.01, 10, 200, 14.20, 0.9},
		{"B3SA3", "B3 ON", ClassEquity, 0.01, 10, 200, 11.60, 1.0},
		{"ABEV3", "Ambev ON", ClassEquity, 0.01, 10, 200, 12.90, 0.7},

		{"WINQ26", "Mini Ibovespa Future Aug26", ClassIndexFut, 5.0, 10, 400, 132450, 1.2},
		{"WDOQ26", "Mini Dollar Future Aug26", ClassFXFut, 0.5, 10, 400, 5432.5, 1.0},
		{"INDQ26", "Ibovespa Future Aug26", ClassIndexFut, 5.0, 10, 400, 132500, 1.2},
		{"DOLQ26", "Dollar Future Aug26", ClassFXFut, 0.5, 10, 400, 5433.0, 1.0},

		{"DI1F27", "DI Future Jan27", ClassRateFut, 0.005, 10, 200, 100.85, 0.3},
		{"DI1F28", "DI Future Jan28", ClassRateFut, 0.005, 10, 200, 100.20, 0.3},

		{"CCMK26", "Corn Future May26", ClassCommodity, 0.25, 10, 200, 68.75, 0.8},
	}
}

// ByTicker returns a map from ticker to symbol for quick lookup.
func ByTicker() map[string]*Symbol {
	syms := AllSymbols()
	m := make(map[string]*Symbol, len(syms))
	for i := range syms {
		m[syms[i].Ticker] = &syms[i]
	}
	return m
}

// Classes returns the asset classes in table order.
func Classes() []AssetClass {
	return []AssetClass{ClassEquity, ClassIndexFut, ClassRateFut, ClassFXFut, ClassCommodity}
}

// ByClass groups symbols by asset class (kept for API-surface parity with
// the monitor's by-class listing endpoint).
func ByClass() map[AssetClass][]Symbol {
	syms := AllSymbols()
	m := make(map[AssetClass][]Symbol)
	for _, s := range syms {
		m[s.Class] = append(m[s.Class], s)
	}
	return m
}
