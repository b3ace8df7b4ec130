package session

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const handshakeReadCap = 64 * 1024

// readUntil accumulates bytes from r until buf contains marker, returning
// everything read so far. Bounded to avoid buffering unboundedly against a
// misbehaving peer.
func readUntil(r *bufio.Reader, marker string) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			return sb.String(), fmt.Errorf("session: read until %q: %w", marker, err)
		}
		sb.WriteByte(b)
		if sb.Len() > handshakeReadCap {
			return sb.String(), fmt.Errorf("session: marker %q not seen within %d bytes", marker, handshakeReadCap)
		}
		if strings.Contains(sb.String(), marker) {
			return sb.String(), nil
		}
	}
}

// Handshake performs the telnet-style login exchange: send CRLF, expect
// "Username:", send user, expect "Password:", send pass, expect "You are
// connected" (§6.1).
func Handshake(w io.Writer, r *bufio.Reader, user, pass string) error {
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return fmt.Errorf("session: send initial CRLF: %w", err)
	}
	if _, err := readUntil(r, "Username:"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, user+"\r\n"); err != nil {
		return fmt.Errorf("session: send username: %w", err)
	}
	if _, err := readUntil(r, "Password:"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, pass+"\r\n"); err != nil {
		return fmt.Errorf("session: send password: %w", err)
	}
	if _, err := readUntil(r, "You are connected"); err != nil {
		return err
	}
	return nil
}

// SubscribeCommands builds the batched subscription command block for the
// tracked contracts plus the fixed interest-rate subscription (§4.3).
func SubscribeCommands(contracts []string, interestRateCmd string) []string {
	cmds := make([]string, 0, len(contracts)*4+1)
	for _, c := range contracts {
		cmds = append(cmds,
			fmt.Sprintf("BQT %s", c),
			fmt.Sprintf("GQT %s S", c),
			fmt.Sprintf("SQT %s", c),
			fmt.Sprintf("SAB %s", c),
		)
	}
	if interestRateCmd != "" {
		cmds = append(cmds, interestRateCmd)
	}
	return cmds
}

// Subscribe writes the command block as one batched write; if that fails
// it falls back to writing each command individually (§4.3).
func Subscribe(w io.Writer, cmds []string) error {
	var sb strings.Builder
	for _, c := range cmds {
		sb.WriteString(c)
		sb.WriteString("\r\n")
	}
	if _, err := io.WriteString(w, sb.String()); err == nil {
		return nil
	}

	for _, c := range cmds {
		if _, err := io.WriteString(w, c+"\r\n"); err != nil {
			return fmt.Errorf("session: subscribe fallback write %q: %w", c, err)
		}
	}
	return nil
}
