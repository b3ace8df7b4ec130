package session

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func TestHandshakeSequence(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		sr := bufio.NewReader(server)
		readUntil(sr, "\r\n") // initial CRLF from client
		server.Write([]byte("Username:"))
		readUntil(sr, "\r\n")
		server.Write([]byte("Password:"))
		readUntil(sr, "\r\n")
		server.Write([]byte("You are connected"))
	}()

	r := bufio.NewReader(client)
	if err := Handshake(client, r, "gustavofm", "secret"); err != nil {
		t.Fatalf("handshake: %v", err)
	}
}

func TestHandshakeFailsWithoutExpectedPrompt(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		buf := make([]byte, 64)
		server.Read(buf)
		server.Write([]byte("unexpected"))
		server.Close()
	}()

	r := bufio.NewReader(client)
	if err := Handshake(client, r, "u", "p"); err == nil {
		t.Fatal("expected handshake to fail on unexpected prompt")
	}
}

func TestSubscribeCommandsIncludesAllContractsAndRate(t *testing.T) {
	cmds := SubscribeCommands([]string{"WINQ26"}, "GQT DI1F27 S")
	if len(cmds) != 5 {
		t.Fatalf("expected 4 per-contract commands + 1 rate command, got %d: %v", len(cmds), cmds)
	}
	if cmds[len(cmds)-1] != "GQT DI1F27 S" {
		t.Fatalf("expected interest-rate command last, got %q", cmds[len(cmds)-1])
	}
}

func TestSubscribeWritesBatchedBlock(t *testing.T) {
	var sb strings.Builder
	if err := Subscribe(&sb, []string{"BQT WINQ26", "GQT WINQ26 S"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if sb.String() != "BQT WINQ26\r\nGQT WINQ26 S\r\n" {
		t.Fatalf("unexpected batched write: %q", sb.String())
	}
}

func TestMarketWindowContains(t *testing.T) {
	w := DefaultMarketWindow()
	inside := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	if !w.Contains(inside) {
		t.Fatal("expected noon to be inside the default window")
	}
	if w.Contains(outside) {
		t.Fatal("expected 22:00 to be outside the default window")
	}
}

func TestManagerSleepsOutsideMarketWindow(t *testing.T) {
	cfg := DefaultConfig("127.0.0.1:0", "u", "p", nil)
	outside := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	m := New(cfg, func() time.Time { return outside })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	m.Run(ctx, func(string) {})

	if m.State() != Disconnected {
		t.Fatalf("expected manager to stay disconnected outside market window, got %v", m.State())
	}
}

func TestManagerStreamsLinesFromServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		readUntil(r, "\r\n")
		conn.Write([]byte("Username:"))
		readUntil(r, "\r\n")
		conn.Write([]byte("Password:"))
		readUntil(r, "\r\n")
		conn.Write([]byte("You are connected"))
		buf := make([]byte, 256)
		conn.Read(buf) // subscription block
		conn.Write([]byte("Z:WINQ26:A:0:A:10.0:5:1\n"))
		time.Sleep(50 * time.Millisecond)
	}()

	cfg := DefaultConfig(ln.Addr().String(), "u", "p", []string{"WINQ26"})
	cfg.ReconnectDelay = time.Millisecond
	inside := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m := New(cfg, func() time.Time { return inside })

	lines := make(chan string, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	m.Run(ctx, func(line string) { lines <- line })

	select {
	case line := <-lines:
		if line != "Z:WINQ26:A:0:A:10.0:5:1\n" {
			t.Fatalf("unexpected line: %q", line)
		}
	default:
		t.Fatal("expected at least one streamed line")
	}
}
