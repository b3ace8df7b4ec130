package session

import "time"

// MarketWindow is the local daily window during which the manager should
// be connected. Outside it, the manager sleeps without dialing (§4.3).
type MarketWindow struct {
	Start, End time.Duration // time-of-day offsets, e.g. 9h and 19h
}

// DefaultMarketWindow mirrors the reference tool's 09:00-19:00 session.
func DefaultMarketWindow() MarketWindow {
	return MarketWindow{Start: 9 * time.Hour, End: 19 * time.Hour}
}

// Contains reports whether t's local time-of-day falls within the window.
func (w MarketWindow) Contains(t time.Time) bool {
	tod := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
	return tod >= w.Start && tod <= w.End
}
