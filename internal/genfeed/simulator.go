package genfeed

import (
	"fmt"
	"time"

	"github.com/gustavoferreira/cedrofeed/internal/bbook"
	"github.com/gustavoferreira/cedrofeed/internal/engine"
	"github.com/gustavoferreira/cedrofeed/internal/zbook"
)

// actionWeights sets the relative frequency of each simulated book
// action (Add/Cancel/Replace/Trade/Replenish), emitted as Cedro Z:/B:/V:
// lines.
var actionWeights = []float64{
	0.30, // add
	0.20, // cancel
	0.15, // replace
	0.15, // trade
	0.20, // replenish
}

const (
	actionAdd = iota
	actionCancel
	actionReplace
	actionTrade
	actionReplenish
)

var brokers = []int{101, 202, 303, 404, 505, 606}

// Simulator drives simulated Z/B/V/T traffic for a single symbol.
type Simulator struct {
	rng      *engine.RNG
	tickSize float64
	state    *SymState
}

// NewSimulator returns a simulator for symbol, seeded with a resting book
// around refPrice.
func NewSimulator(rng *engine.RNG, tickSize float64, depth, bookCap int, symbol string, refPrice float64) *Simulator {
	sim := &Simulator{rng: rng, tickSize: tickSize, state: NewSymState(symbol, depth, bookCap)}
	sim.seed(refPrice)
	return sim
}

// Book exposes the producer-side Z book, e.g. for a /api/books view.
func (sim *Simulator) Book() *zbook.Book { return sim.state.ZB }

func (sim *Simulator) snapPrice(p float64) float64 {
	if p < sim.tickSize {
		p = sim.tickSize
	}
	return float64(int64(p/sim.tickSize+0.5)) * sim.tickSize
}

// seed populates a handful of resting levels/orders on each side so the
// first Step call has a non-empty book to mutate.
func (sim *Simulator) seed(refPrice float64) {
	for i := 0; i < 5; i++ {
		offset := float64(i+1) * sim.tickSize
		bidPx := sim.snapPrice(refPrice - offset)
		askPx := sim.snapPrice(refPrice + offset)
		qty := float64(100 * (i + 1))

		sim.zInsertBest('A', bidPx, int(qty), 1)
		sim.zInsertBest('V', askPx, int(qty), 1)
		sim.bInsert('A', bidPx, qty)
		sim.bInsert('V', askPx, qty)
	}
}

// Step performs numActions simulated book mutations plus one ticker
// update and returns the Cedro wire lines generated, in emission order.
func (sim *Simulator) Step(now time.Time, price float64, numActions int) []string {
	var lines []string
	for i := 0; i < numActions; i++ {
		switch sim.rng.WeightedPick(actionWeights) {
		case actionAdd:
			lines = append(lines, sim.doAdd(price)...)
		case actionCancel:
			lines = append(lines, sim.doCancel()...)
		case actionReplace:
			lines = append(lines, sim.doReplace(price)...)
		case actionTrade:
			lines = append(lines, sim.doTrade(now, price)...)
		case actionReplenish:
			lines = append(lines, sim.doReplenish(price)...)
		}
	}
	lines = append(lines, sim.tickerLine(now))
	return lines
}

func (sim *Simulator) randSide() byte {
	if sim.rng.Float64() < 0.5 {
		return 'A'
	}
	return 'V'
}

func (sim *Simulator) doAdd(price float64) []string {
	side := sim.randSide()
	offset := float64(sim.rng.IntRange(1, 3)) * sim.tickSize
	px := price - offset
	if side == 'V' {
		px = price + offset
	}
	px = sim.snapPrice(px)
	qty := float64(sim.rng.LotQty(1, 10))

	var out []string
	out = append(out, sim.zInsertBest(side, px, int(qty), sim.rng.IntRange(1, 3))...)
	out = append(out, sim.bInsert(side, px, qty))
	return out
}

func (sim *Simulator) doReplenish(price float64) []string {
	side := sim.randSide()
	offset := float64(sim.rng.IntRange(3, 8)) * sim.tickSize
	px := price - offset
	if side == 'V' {
		px = price + offset
	}
	px = sim.snapPrice(px)
	qty := float64(sim.rng.LotQty(2, 10))

	var out []string
	out = append(out, sim.zInsertBest(side, px, int(qty), 1)...)
	out = append(out, sim.bInsert(side, px, qty))
	return out
}

func (sim *Simulator) doCancel() []string {
	var out []string
	if l := sim.zCancelRandom('A'); l != "" {
		out = append(out, l)
	}
	if l := sim.bCancelRandom('A'); l != "" {
		out = append(out, l)
	}
	return out
}

// doReplace mutates an existing resting level/order's quantity in place,
// emitting a "U" line at the same position on both books (no shift).
func (sim *Simulator) doReplace(price float64) []string {
	var out []string
	side := sim.randSide()

	arr := sim.state.ZB.Bids
	if side == 'V' {
		arr = sim.state.ZB.Asks
	}
	for i := range arr {
		if arr[i].Valid {
			arr[i].Qty = sim.rng.LotQty(1, 10)
			out = append(out, formatZ(sim.state.Symbol, 'U', side, i, arr[i].Price, arr[i].Qty, arr[i].NOrders))
			break
		}
	}

	sb := sim.state.BB.Side(side)
	if sb.Len > 0 {
		pos := sim.rng.Intn(sb.Len)
		o := sb.Arr[pos]
		o.Qty = float64(sim.rng.LotQty(1, 10))
		sim.state.BB.ApplyUpdate(side, pos, pos, o)
		out = append(out, formatBUpdate(sim.state.Symbol, pos, pos, side, o.Price, o.Qty, o.Broker, o.DH, o.OrderID, o.OType))
	}
	return out
}

func (sim *Simulator) doTrade(now time.Time, price float64) []string {
	zb := sim.state.ZB
	px := price
	if zb.Bids[0].Valid && zb.Asks[0].Valid {
		if sim.rng.Float64() < 0.5 {
			px = zb.Bids[0].Price
		} else {
			px = zb.Asks[0].Price
		}
	}
	qty := float64(sim.rng.LotQty(1, 20))
	aggressor := byte('A')
	if sim.rng.Float64() < 0.5 {
		aggressor = 'V'
	}

	sim.state.lastTrade = px
	sim.state.cumTrades++
	sim.state.cumVol += int64(qty)
	sim.state.cumFin += px * qty
	if aggressor == 'A' {
		sim.state.tickDir = "+"
	} else {
		sim.state.tickDir = "-"
	}

	tradeID := sim.state.newTradeID()
	hhmmssmmm := now.Format("150405") + fmt.Sprintf("%03d", now.Nanosecond()/1e6)
	buyer := sim.rng.Broker(brokers)
	seller := sim.rng.Broker(brokers)
	return []string{formatVTrade(sim.state.Symbol, hhmmssmmm, px, buyer, seller, qty, tradeID, "0", aggressor, 0)}
}

// zInsertBest shifts the chosen side's levels down by one and writes the
// new best at index 0, emitting one "A" line for the new slot and one "U"
// line for every slot whose content moved (the producer-side shift the
// consumer package's zbook.Book.Apply relies on, per DESIGN.md).
func (sim *Simulator) zInsertBest(side byte, price float64, qty, n int) []string {
	arr := sim.state.ZB.Bids
	if side == 'V' {
		arr = sim.state.ZB.Asks
	}
	depth := len(arr)

	var lines []string
	for i := depth - 1; i > 0; i-- {
		arr[i] = arr[i-1]
		if arr[i].Valid {
			lines = append(lines, formatZ(sim.state.Symbol, 'U', side, i, arr[i].Price, arr[i].Qty, arr[i].NOrders))
		}
	}
	arr[0] = zbook.Level{Price: price, Qty: qty, NOrders: n, Valid: true}
	lines = append(lines, formatZ(sim.state.Symbol, 'A', side, 0, price, qty, n))
	return lines
}

func (sim *Simulator) zCancelRandom(_ byte) string {
	side := sim.randSide()
	arr := sim.state.ZB.Bids
	if side == 'V' {
		arr = sim.state.ZB.Asks
	}
	var valid []int
	for i, lv := range arr {
		if lv.Valid {
			valid = append(valid, i)
		}
	}
	if len(valid) == 0 {
		return ""
	}
	pos := valid[sim.rng.Intn(len(valid))]
	for i := pos; i < len(arr)-1; i++ {
		arr[i] = arr[i+1]
	}
	arr[len(arr)-1] = zbook.Level{}
	return formatZCancelOne(sim.state.Symbol, side, pos)
}

func (sim *Simulator) bInsert(side byte, price, qty float64) string {
	sb := sim.state.BB.Side(side)
	pos := sim.rng.IntRange(0, min(2, sb.Len))
	o := bbook.Order{
		Price: price, Qty: qty,
		Broker:  sim.rng.Broker(brokers),
		DH:      dhTag(time.Now()),
		OrderID: sim.state.newOrderID(),
		OType:   'L',
	}
	sb.Insert(pos, o)
	return formatBAdd(sim.state.Symbol, pos, side, price, qty, o.Broker, o.DH, o.OrderID, o.OType)
}

func (sim *Simulator) bCancelRandom(_ byte) string {
	side := sim.randSide()
	sb := sim.state.BB.Side(side)
	if sb.Len == 0 {
		return ""
	}
	pos := sim.rng.Intn(sb.Len)
	sb.RemoveAt(pos)
	return formatBCancel(sim.state.Symbol, side, pos)
}

// tickerLine renders one "T:" update seeded from the current top of book
// and last trade/cumulative state (§4.7 field index map).
func (sim *Simulator) tickerLine(now time.Time) string {
	zb := sim.state.ZB
	st := sim.state

	fields := []tField{}
	if zb.Bids[0].Valid {
		fields = append(fields, tField{3, trimFloat(zb.Bids[0].Price)}, tField{19, fmt.Sprintf("%d", zb.Bids[0].Qty)})
	}
	if zb.Asks[0].Valid {
		fields = append(fields, tField{4, trimFloat(zb.Asks[0].Price)}, tField{20, fmt.Sprintf("%d", zb.Asks[0].Qty)})
	}
	if st.lastTrade > 0 {
		fields = append(fields, tField{2, trimFloat(st.lastTrade)})
	}
	fields = append(fields,
		tField{8, fmt.Sprintf("%d", st.cumTrades)},
		tField{9, fmt.Sprintf("%d", st.cumVol)},
		tField{10, trimFloat(st.cumFin)},
	)
	if st.tickDir != "" {
		fields = append(fields, tField{106, st.tickDir})
	}
	fields = append(fields, tField{142, now.Format("150405") + fmt.Sprintf("%03d", now.Nanosecond()/1e6)})

	return formatT(st.Symbol, 0, fields)
}

func dhTag(t time.Time) string {
	return t.Format("02150405")
}
