package bbook

import "math"

// SymState is one symbol's order book plus bar/EMA/OFI accumulators.
type SymState struct {
	Book *Book
	ofi  OFIState

	BarInited   bool
	BarStartSec int
	Events, Adds, Updates, D1, D2, D3, EMsgs int
	OFISum float64

	EmaFast, EmaSlow, EmaImb, EmaOfi                     float64
	EmaFastInit, EmaSlowInit, EmaImbInit, EmaOfiInit bool
}

// NewSymState allocates per-symbol state with the given per-side book
// capacity.
func NewSymState(bookCap int) *SymState {
	return &SymState{Book: NewBook(bookCap)}
}

// ResetBar starts a new bar, clearing event counters and the OFI
// accumulator (EMA state carries across bars).
func (st *SymState) ResetBar(startSec int) {
	st.BarInited = true
	st.BarStartSec = startSec
	st.Events, st.Adds, st.Updates, st.D1, st.D2, st.D3, st.EMsgs = 0, 0, 0, 0, 0, 0, 0
	st.OFISum = 0
}

// UpdateOFI recomputes best-quote state and folds the next increment into
// the current bar's OFISum. Call after every book mutation.
func (st *SymState) UpdateOFI() {
	st.ofi.UpdateAfterEvent(st.Book, &st.OFISum)
}

// EMAAlpha converts a period (in bars) to a smoothing factor, matching the
// reference's 2/(period+1) convention.
func EMAAlpha(period int) float64 {
	return 2.0 / (float64(period) + 1.0)
}

func emaUpdate(prev, x, alpha float64, inited *bool) float64 {
	if !*inited {
		*inited = true
		return x
	}
	return prev + alpha*(x-prev)
}

// BarConfig holds the tunables for bar emission and the signal rule.
type BarConfig struct {
	BarSec                           int
	LevelsL                          int
	EmaFastPeriod, EmaSlowPeriod     int
	EmaImbPeriod, EmaOfiPeriod       int
	ImbTh, OfiTh                     float64
	MinEvents                        int
}

// DefaultBarConfig mirrors the reference tool's 1-second-bar defaults.
func DefaultBarConfig() BarConfig {
	return BarConfig{BarSec: 1, LevelsL: 5, EmaFastPeriod: 5, EmaSlowPeriod: 20, EmaImbPeriod: 10, EmaOfiPeriod: 10, ImbTh: 0.15, OfiTh: 5, MinEvents: 1}
}

// Bar is one emitted row's computed feature set.
type Bar struct {
	BarStartSec                            int
	Events, Adds, Updates, D1, D2, D3, EMsgs int
	BestBidPx, BestBidQty, BestAskPx, BestAskQty float64
	Spread, Mid, Microprice                 float64
	BidQtyL, AskQtyL, Imbalance, OFI         float64
	EmaFast, EmaSlow, EmaImb, EmaOfi, EmaDiff float64
	Signal                                   string
	TrackedBidLen, TrackedAskLen             int
}

// SignalRule is the BUY/SELL/FLAT decision from EMA trend, imbalance and
// OFI, gated by a minimum event count (§4.6 composite signal).
func SignalRule(emaFast, emaSlow, emaImb, emaOfi, imbTh, ofiTh float64, minEvents, events int) string {
	if events < minEvents {
		return "FLAT"
	}
	if emaFast > emaSlow && emaImb > imbTh && emaOfi > ofiTh {
		return "BUY"
	}
	if emaFast < emaSlow && emaImb < -imbTh && emaOfi < -ofiTh {
		return "SELL"
	}
	return "FLAT"
}

// EmitBar computes the bar's snapshot features, advances EMA state, and
// returns the row to write. Call only when st.BarInited.
func EmitBar(cfg BarConfig, st *SymState) Bar {
	bb := st.Book.Bid.HasBest()
	ba := st.Book.Ask.HasBest()

	bbPx, bbQ, baPx, baQ := math.NaN(), math.NaN(), math.NaN(), math.NaN()
	if bb {
		bbPx, bbQ = st.Book.Bid.Arr[0].Price, st.Book.Bid.Arr[0].Qty
	}
	if ba {
		baPx, baQ = st.Book.Ask.Arr[0].Price, st.Book.Ask.Arr[0].Qty
	}

	spread, mid, micro := math.NaN(), math.NaN(), math.NaN()
	if bb && ba {
		spread = baPx - bbPx
		mid = 0.5 * (bbPx + baPx)
		if denom := bbQ + baQ; denom > 0 {
			micro = (bbPx*baQ + baPx*bbQ) / denom
		} else {
			micro = mid
		}
	}

	bidL := st.Book.Bid.SumQtyFirst(cfg.LevelsL)
	askL := st.Book.Ask.SumQtyFirst(cfg.LevelsL)
	var imb float64
	if denom := bidL + askL; denom > 0 {
		imb = (bidL - askL) / denom
	}

	pxRef := mid
	if !math.IsNaN(micro) {
		pxRef = micro
	}
	if !math.IsNaN(pxRef) {
		st.EmaFast = emaUpdate(st.EmaFast, pxRef, EMAAlpha(cfg.EmaFastPeriod), &st.EmaFastInit)
		st.EmaSlow = emaUpdate(st.EmaSlow, pxRef, EMAAlpha(cfg.EmaSlowPeriod), &st.EmaSlowInit)
	}
	st.EmaImb = emaUpdate(st.EmaImb, imb, EMAAlpha(cfg.EmaImbPeriod), &st.EmaImbInit)
	st.EmaOfi = emaUpdate(st.EmaOfi, st.OFISum, EMAAlpha(cfg.EmaOfiPeriod), &st.EmaOfiInit)

	sig := SignalRule(st.EmaFast, st.EmaSlow, st.EmaImb, st.EmaOfi, cfg.ImbTh, cfg.OfiTh, cfg.MinEvents, st.Events)

	return Bar{
		BarStartSec: st.BarStartSec,
		Events: st.Events, Adds: st.Adds, Updates: st.Updates,
		D1: st.D1, D2: st.D2, D3: st.D3, EMsgs: st.EMsgs,
		BestBidPx: bbPx, BestBidQty: bbQ, BestAskPx: baPx, BestAskQty: baQ,
		Spread: spread, Mid: mid, Microprice: micro,
		BidQtyL: bidL, AskQtyL: askL, Imbalance: imb, OFI: st.OFISum,
		EmaFast: st.EmaFast, EmaSlow: st.EmaSlow, EmaImb: st.EmaImb, EmaOfi: st.EmaOfi,
		EmaDiff: st.EmaFast - st.EmaSlow, Signal: sig,
		TrackedBidLen: st.Book.Bid.Len, TrackedAskLen: st.Book.Ask.Len,
	}
}
