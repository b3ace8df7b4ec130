package tagg

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

func sgn(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

// computeSignal applies hysteresis: the entry threshold gates a fresh
// signal, the (lower) keep threshold holds an already-active one.
func computeSignal(score float64, lastSignal int, enterTh, keepTh float64) int {
	s := sgn(score)
	if s == 0 {
		return 0
	}
	th := enterTh
	if lastSignal != 0 && s == lastSignal {
		th = keepTh
	}
	if math.Abs(score) >= th {
		return s
	}
	return 0
}

func computeMidSpread(bid, ask float64) (mid, spread float64) {
	if math.IsNaN(bid) || math.IsNaN(ask) {
		return math.NaN(), math.NaN()
	}
	return (bid + ask) / 2.0, ask - bid
}

func safeImb(bq, aq int64) float64 {
	if isMissingInt64(bq) || isMissingInt64(aq) {
		return math.NaN()
	}
	den := bq + aq
	if den <= 0 {
		return math.NaN()
	}
	return float64(bq-aq) / float64(den)
}

func safeMicroprice(bid, ask float64, bq, aq int64) float64 {
	if math.IsNaN(bid) || math.IsNaN(ask) || isMissingInt64(bq) || isMissingInt64(aq) {
		return math.NaN()
	}
	den := bq + aq
	if den <= 0 {
		return math.NaN()
	}
	return (bid*float64(aq) + ask*float64(bq)) / float64(den)
}

// hhmmssmmmToTime interprets a 9-digit HHMMSSmmm field against the wall
// clock day of `day`.
func hhmmssmmmToTime(day time.Time, s string) (time.Time, bool) {
	if len(s) != 9 {
		return time.Time{}, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return time.Time{}, false
		}
	}
	hh, _ := strconv.Atoi(s[0:2])
	mm, _ := strconv.Atoi(s[2:4])
	ss, _ := strconv.Atoi(s[4:6])
	ms, _ := strconv.Atoi(s[6:9])
	if hh > 23 || mm > 59 || ss > 59 {
		return time.Time{}, false
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, hh, mm, ss, ms*int(time.Millisecond), day.Location()), true
}

// Row is one flushed second for one symbol, matching the reference CSV's
// column order (§4.7).
type Row struct {
	ReadTS, WriteTS, Symbol           string
	EventTS142, TradeTS143            string
	DelayMs                           int64
	DelaySrc                          string
	Last, Bid, Ask, Spread, Mid       float64
	BidQty1, AskQty1                  int64
	Imb1, Microprice, MicropriceDev   float64
	TradeQtyCur, TradeQtyLast         int64
	CumTrades, CumVol                 int64
	CumFin                            float64
	DTrades, DVol                     int64
	DFin, DFinEst                     float64
	TickDir                           string
	Variation                         float64
	TickDirAgg, TickDirSum, TickDirN  int
	TickDirTh                         int
	SignLR, SignTick                  int
	SignedVol                         int64
	TSignalNum                        int
	TSignal                           string
	HadTrade                          int
	Status                            int64
	Phase                             string
	HadUpdate, CarryForward, NEvents  int
	ResetDay                          int
}

// Header lists Row's columns in CSV order.
var Header = []string{
	"read_ts", "write_ts", "symbol",
	"event_ts_142", "trade_ts_143",
	"delay_ms", "delay_src",
	"last", "best_bid", "best_ask", "spread", "mid",
	"bid_qty1", "ask_qty1", "imb1", "microprice", "microprice_dev",
	"trade_qty_cur", "trade_qty_last",
	"cum_trades", "cum_vol", "cum_fin",
	"d_trades_1s", "d_vol_1s", "d_fin_1s", "d_fin_est_1s",
	"tick_dir", "variation",
	"tick_dir_agg", "tick_dir_sum", "tick_dir_n", "tick_dir_th",
	"trade_sign_lr", "trade_sign_tick", "signed_vol_1s",
	"t_signal_num", "t_signal", "had_trade_1s",
	"status", "phase",
	"had_update_1s", "carry_forward_1s", "n_events_1s", "reset_day",
}

func fmtF(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func fmtI(v int64) string {
	if isMissingInt64(v) {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

// Strings renders Row as CSV field values, in Header order.
func (r Row) Strings() []string {
	return []string{
		r.ReadTS, r.WriteTS, r.Symbol,
		r.EventTS142, r.TradeTS143,
		strconv.FormatInt(r.DelayMs, 10), r.DelaySrc,
		fmtF(r.Last), fmtF(r.Bid), fmtF(r.Ask), fmtF(r.Spread), fmtF(r.Mid),
		fmtI(r.BidQty1), fmtI(r.AskQty1), fmtF(r.Imb1), fmtF(r.Microprice), fmtF(r.MicropriceDev),
		fmtI(r.TradeQtyCur), fmtI(r.TradeQtyLast),
		fmtI(r.CumTrades), fmtI(r.CumVol), fmtF(r.CumFin),
		strconv.FormatInt(r.DTrades, 10), strconv.FormatInt(r.DVol, 10), fmtF(r.DFin), fmtF(r.DFinEst),
		r.TickDir, fmtF(r.Variation),
		strconv.Itoa(r.TickDirAgg), strconv.Itoa(r.TickDirSum), strconv.Itoa(r.TickDirN), strconv.Itoa(r.TickDirTh),
		strconv.Itoa(r.SignLR), strconv.Itoa(r.SignTick), strconv.FormatInt(r.SignedVol, 10),
		strconv.Itoa(r.TSignalNum), r.TSignal, strconv.Itoa(r.HadTrade),
		fmtI(r.Status), r.Phase,
		strconv.Itoa(r.HadUpdate), strconv.Itoa(r.CarryForward), strconv.Itoa(r.NEvents), strconv.Itoa(r.ResetDay),
	}
}

// FlushSecond folds one second's bucket into carry-forward state and
// produces the emitted row, resetting the bucket in place (§4.7
// flush_second).
func FlushSecond(cfg Config, symbol string, st *SymbolState, b *Bucket, writeTS, readTS time.Time) Row {
	hadUpdate := b.NEvents > 0

	if hadUpdate {
		if !math.IsNaN(b.Last) {
			st.Last = b.Last
		}
		if !math.IsNaN(b.Bid) {
			st.Bid = b.Bid
		}
		if !math.IsNaN(b.Ask) {
			st.Ask = b.Ask
		}
		if !isMissingInt64(b.BidQty1) {
			st.BidQty1 = b.BidQty1
		}
		if !isMissingInt64(b.AskQty1) {
			st.AskQty1 = b.AskQty1
		}
		if !isMissingInt64(b.TradeQtyCur) {
			st.TradeQtyCur = b.TradeQtyCur
		}
		if !isMissingInt64(b.TradeQtyLast) {
			st.TradeQtyLast = b.TradeQtyLast
		}
		if !isMissingInt64(b.Status) {
			st.Status = b.Status
		}
		if b.Phase != "" {
			st.Phase = b.Phase
		}
		if b.TickDirLast != "" {
			st.TickDir = b.TickDirLast
		}
		if !math.IsNaN(b.Variation) {
			st.Variation = b.Variation
		}
	}

	hasAnyState := !math.IsNaN(st.Last) || !math.IsNaN(st.Bid) || !math.IsNaN(st.Ask)
	carryForward := 0
	if !hadUpdate && hasAnyState {
		carryForward = 1
	}

	mid, spread := computeMidSpread(st.Bid, st.Ask)
	imb1 := safeImb(st.BidQty1, st.AskQty1)
	micro := safeMicroprice(st.Bid, st.Ask, st.BidQty1, st.AskQty1)
	microDev := math.NaN()
	if !math.IsNaN(micro) && !math.IsNaN(mid) {
		microDev = micro - mid
	}

	resetDay := 0
	var dTrades, dVol int64
	var dFin float64

	if hadUpdate {
		if !isMissingInt64(b.CumTrades) {
			prev, cur := st.CumTrades, b.CumTrades
			switch {
			case isMissingInt64(prev):
				dTrades = 0
			case cur < prev:
				resetDay = 1
			default:
				dTrades = cur - prev
			}
			st.CumTrades = cur
		}
		if !isMissingInt64(b.CumVol) {
			prev, cur := st.CumVol, b.CumVol
			switch {
			case isMissingInt64(prev):
				dVol = 0
			case cur < prev:
				resetDay = 1
			default:
				dVol = cur - prev
			}
			st.CumVol = cur
		}
		if !math.IsNaN(b.CumFin) {
			prev, cur := st.CumFin, b.CumFin
			switch {
			case math.IsNaN(prev):
				dFin = 0
			case cur < prev:
				resetDay = 1
			default:
				dFin = cur - prev
			}
			st.CumFin = cur
		}
	}

	hadTrade := 0
	if dTrades > 0 || dVol > 0 || b.LastTrade143 != "" {
		hadTrade = 1
	}

	sLR := 0
	if !math.IsNaN(st.Last) && !math.IsNaN(mid) {
		if st.Last > mid {
			sLR = 1
		} else if st.Last < mid {
			sLR = -1
		}
	}

	sTick := 0
	if !math.IsNaN(st.Last) && !math.IsNaN(st.PrevLastForTick) {
		if st.Last > st.PrevLastForTick {
			sTick = 1
		} else if st.Last < st.PrevLastForTick {
			sTick = -1
		}
	}

	signedVol := int64(sLR) * dVol

	tickDirAgg := 0
	if absInt(b.TickDirSum) >= cfg.TickDirTh {
		if b.TickDirSum > 0 {
			tickDirAgg = 1
		} else {
			tickDirAgg = -1
		}
	}

	var score float64
	if !math.IsNaN(imb1) && math.Abs(imb1) >= cfg.ImbTh {
		score += signF(imb1)
	}
	if !math.IsNaN(microDev) {
		if cfg.MicroDevTh <= 0 || math.Abs(microDev) >= cfg.MicroDevTh {
			score += signF(microDev)
		}
	}
	if tickDirAgg != 0 {
		score += 0.8 * float64(tickDirAgg)
	}
	if sTick != 0 {
		score += 0.6 * float64(sTick)
	}
	if sLR != 0 {
		score += 0.6 * float64(sLR)
	}
	if hadTrade == 1 && dVol != 0 {
		score += 0.5 * signF(float64(signedVol))
	}

	allowSignal := true
	if cfg.MaxSpread > 0 && !math.IsNaN(spread) && spread > cfg.MaxSpread {
		allowSignal = false
	}
	if cfg.RequireTrade && hadTrade == 0 {
		allowSignal = false
	}
	if cfg.MinVol > 0 && dVol < cfg.MinVol {
		allowSignal = false
	}
	if math.IsNaN(mid) || math.IsNaN(st.Last) {
		allowSignal = false
	}

	tSignalNum := 0
	if allowSignal {
		tSignalNum = computeSignal(score, st.LastSignal, cfg.EnterTh, cfg.KeepTh)
	}
	tSignal := "HOLD"
	if tSignalNum > 0 {
		tSignal = "BUY"
	} else if tSignalNum < 0 {
		tSignal = "SELL"
	}

	if tSignalNum != 0 {
		st.LastSignal = tSignalNum
	} else if math.Abs(score) < 0.2 {
		st.LastSignal = 0
	}
	st.LastScore = score

	if !math.IsNaN(st.Last) {
		st.PrevLastForTick = st.Last
	}

	eventTS, tradeTS := "", ""
	srcT := writeTS
	delaySrc := "write_ts"
	if b.LastEvent142 != "" {
		if t, ok := hhmmssmmmToTime(writeTS, b.LastEvent142); ok {
			eventTS = isoMS(t)
			srcT = t
			delaySrc = "142"
		}
	}
	if delaySrc == "write_ts" && b.LastTrade143 != "" {
		if t, ok := hhmmssmmmToTime(writeTS, b.LastTrade143); ok {
			tradeTS = isoMS(t)
			srcT = t
			delaySrc = "143"
		}
	}
	delayMs := readTS.Sub(srcT).Milliseconds()

	dFinEst := math.NaN()
	if dFin != 0 {
		dFinEst = dFin
	} else if !math.IsNaN(st.Last) {
		dFinEst = float64(dVol) * st.Last
	}

	row := Row{
		ReadTS: isoMS(readTS), WriteTS: formatWriteTS(writeTS), Symbol: symbol,
		EventTS142: eventTS, TradeTS143: tradeTS,
		DelayMs: delayMs, DelaySrc: delaySrc,
		Last: st.Last, Bid: st.Bid, Ask: st.Ask, Spread: spread, Mid: mid,
		BidQty1: st.BidQty1, AskQty1: st.AskQty1, Imb1: imb1, Microprice: micro, MicropriceDev: microDev,
		TradeQtyCur: st.TradeQtyCur, TradeQtyLast: st.TradeQtyLast,
		CumTrades: st.CumTrades, CumVol: st.CumVol, CumFin: st.CumFin,
		DTrades: dTrades, DVol: dVol, DFin: dFin, DFinEst: dFinEst,
		TickDir: st.TickDir, Variation: st.Variation,
		TickDirAgg: tickDirAgg, TickDirSum: b.TickDirSum, TickDirN: b.TickDirN, TickDirTh: cfg.TickDirTh,
		SignLR: sLR, SignTick: sTick, SignedVol: signedVol,
		TSignalNum: tSignalNum, TSignal: tSignal, HadTrade: hadTrade,
		Status: st.Status, Phase: st.Phase,
		HadUpdate: boolToInt(hadUpdate), CarryForward: carryForward, NEvents: b.NEvents, ResetDay: resetDay,
	}

	b.reset()
	return row
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func signF(x float64) float64 {
	if x > 0 {
		return 1
	}
	return -1
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isoMS(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%03d",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/int(time.Millisecond))
}

func formatWriteTS(t time.Time) string {
	return t.Format("20060102_150405")
}
