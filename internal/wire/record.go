// Package wire frames the raw Cedro TCP byte stream into complete logical
// records and defines the four-column capture row format shared by every
// per-class capture file.
package wire

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeFormat is the exchange-local write_ts format used on every capture row.
const timeFormat = "20060102_150405"

// Class tags recognized by the demultiplexer.
const (
	ClassB     = 'B'
	ClassV     = 'V'
	ClassT     = 'T'
	ClassZ     = 'Z'
	ClassOther = 0
)

// Record is a capture-timestamped logical line from the feed. Once built it
// is never mutated.
type Record struct {
	WriteTS     time.Time
	PacketBytes int
	DeltaMs     int64
	Payload     string
}

// Class inspects the payload's leading "<tag>:" and returns the recognized
// class, or ClassOther if the payload does not start with a known prefix.
func (r Record) Class() byte {
	if len(r.Payload) < 2 || r.Payload[1] != ':' {
		return ClassOther
	}
	switch r.Payload[0] {
	case ClassB, ClassV, ClassT, ClassZ:
		return r.Payload[0]
	default:
		return ClassOther
	}
}

// Line renders the fixed four-column capture format:
// YYYYMMDD_HHMMSS,<packet_bytes>,<delta_ms>,<payload>
func (r Record) Line() string {
	var b strings.Builder
	b.WriteString(r.WriteTS.Format(timeFormat))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(r.PacketBytes))
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(r.DeltaMs, 10))
	b.WriteByte(',')
	b.WriteString(r.Payload)
	return b.String()
}

// ParseLine parses a capture row previously produced by Line, for tailers
// and the rebuild tool reading existing capture files.
func ParseLine(line string) (Record, error) {
	parts := strings.SplitN(line, ",", 4)
	if len(parts) != 4 {
		return Record{}, fmt.Errorf("wire: malformed capture row (want 4 fields, got %d)", len(parts))
	}
	ts, err := time.ParseInLocation(timeFormat, parts[0], SaoPaulo)
	if err != nil {
		return Record{}, fmt.Errorf("wire: bad write_ts %q: %w", parts[0], err)
	}
	bytesN, err := strconv.Atoi(parts[1])
	if err != nil {
		return Record{}, fmt.Errorf("wire: bad packet_bytes %q: %w", parts[1], err)
	}
	deltaMs, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("wire: bad delta_ms %q: %w", parts[2], err)
	}
	return Record{WriteTS: ts, PacketBytes: bytesN, DeltaMs: deltaMs, Payload: parts[3]}, nil
}

// Day returns the exchange-local calendar date the record belongs to, as
// used for per-day capture file naming (YYYYMMDD).
func (r Record) Day() string {
	return r.WriteTS.Format("20060102")
}
