// Session handshake/broadcast surface: implements the exact
// username/password/subscribe exchange internal/session.Handshake expects
// from a server (§6.1), so the real session manager can dial genfeed
// unmodified for end-to-end exercises.
package genfeed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
)

// Hub fans broadcast lines out to every connected subscriber, one LF-
// joined write per call, serialized behind a single mutex (a test
// fixture's connection count never justifies a per-client writer pump).
type Hub struct {
	mu     sync.Mutex
	nextID int
	conns  map[int]net.Conn
}

// NewHub returns an empty connection registry.
func NewHub() *Hub {
	return &Hub{conns: make(map[int]net.Conn)}
}

func (h *Hub) register(conn net.Conn) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.conns[id] = conn
	return id
}

func (h *Hub) unregister(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

// Broadcast writes lines, newline-joined and newline-terminated, to every
// connected client; a client whose write fails is dropped and closed.
func (h *Hub) Broadcast(lines []string) {
	if len(lines) == 0 {
		return
	}
	payload := strings.Join(lines, "\n") + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.conns {
		if _, err := io.WriteString(c, payload); err != nil {
			c.Close()
			delete(h.conns, id)
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Server is a raw TCP listener speaking the upstream feed's handshake
// protocol and then streaming every broadcast line to the client.
type Server struct {
	Addr string
	User string
	Pass string
	Hub  *Hub
}

// NewServer returns a server bound to addr, accepting any username but
// echoing back the configured handshake text exactly as the real feed
// does (§6.1).
func NewServer(addr, user, pass string, hub *Hub) *Server {
	return &Server{Addr: addr, User: user, Pass: pass, Hub: hub}
}

// ListenAndServe accepts connections until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("genfeed: listen %s: %w", s.Addr, err)
	}
	log.Printf("genfeed: listening on %s", s.Addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("genfeed: accept: %w", err)
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetNoDelay(true)
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)

	if err := s.handshake(conn, r); err != nil {
		log.Printf("genfeed: handshake: %v", err)
		return
	}

	id := s.Hub.register(conn)
	defer s.Hub.unregister(id)
	log.Printf("genfeed: client %d connected", id)

	// Drain subscribe commands (and anything after) so the client's
	// writes never block on a full socket buffer; disconnect is
	// detected here since this is the only reader of conn.
	for {
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
	}
}

// handshake mirrors internal/session.Handshake from the server side: read
// the client's initial CRLF, prompt for username, prompt for password,
// then announce the connection (§6.1).
func (s *Server) handshake(conn net.Conn, r *bufio.Reader) error {
	if _, err := r.ReadString('\n'); err != nil {
		return fmt.Errorf("read initial CRLF: %w", err)
	}
	if _, err := io.WriteString(conn, "Username:"); err != nil {
		return err
	}
	if _, err := r.ReadString('\n'); err != nil {
		return fmt.Errorf("read username: %w", err)
	}
	if _, err := io.WriteString(conn, "Password:"); err != nil {
		return err
	}
	if _, err := r.ReadString('\n'); err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	_, err := io.WriteString(conn, "You are connected\r\n")
	return err
}
