package wire

import (
	"bytes"
	"strings"
	"time"
)

// SaoPaulo is the exchange-local time location records are stamped in.
// LoadLocation can fail in minimal container images with no tzdata; the
// exchange does not observe DST, so a fixed -3h offset is a safe fallback.
var SaoPaulo = loadSaoPaulo()

func loadSaoPaulo() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.FixedZone("-03", -3*60*60)
}

// Framer converts a raw byte stream into complete Records, one per LF.
// TCP reads may split a logical record across packets; Feed is safe to call
// repeatedly with successive reads and never truncates or combines records.
// A read's partial trailing line survives across calls (and across
// reconnects, as long as the same Framer instance is reused) until its
// terminating '\n' arrives.
type Framer struct {
	pending  []byte
	lastSeen time.Time
	now      func() time.Time
}

// NewFramer creates a Framer. now defaults to time.Now if nil; tests pass a
// fixed clock to make delta_ms deterministic.
func NewFramer(now func() time.Time) *Framer {
	if now == nil {
		now = time.Now
	}
	return &Framer{now: now}
}

// Feed appends one TCP read to the internal buffer and returns every
// complete record terminated within it. packetBytes is recorded on every
// record produced from this read, per §3's capture metadata definition.
func (f *Framer) Feed(data []byte) []Record {
	packetBytes := len(data)
	f.pending = append(f.pending, data...)

	var out []Record
	for {
		idx := bytes.IndexByte(f.pending, '\n')
		if idx < 0 {
			break
		}
		line := f.pending[:idx]
		f.pending = f.pending[idx+1:]

		payload := strings.TrimSuffix(string(line), "\r")
		if payload == "" {
			continue
		}

		now := f.now().In(SaoPaulo)
		var deltaMs int64
		if !f.lastSeen.IsZero() {
			deltaMs = now.Sub(f.lastSeen).Milliseconds()
		}
		f.lastSeen = now

		out = append(out, Record{
			WriteTS:     now,
			PacketBytes: packetBytes,
			DeltaMs:     deltaMs,
			Payload:     payload,
		})
	}
	return out
}

// Reset clears the pending partial-line buffer. Call this on day rollover,
// per §9's note that the pending buffer must survive reconnects within a
// session but be cleared at the day boundary.
func (f *Framer) Reset() {
	f.pending = f.pending[:0]
}

