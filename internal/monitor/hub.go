// Package monitor exposes a small HTTP + WebSocket operability surface
// over the pipeline's live in-memory state: health, per-symbol book
// snapshots, aggregate stats, and a streaming fan-out of emitted bar/
// signal rows, following the reference tool's client/hub pattern.
package monitor

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

var clientIDCounter uint64

// Client is one connected /stream subscriber.
type Client struct {
	ID   uint64
	conn *websocket.Conn

	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	Dropped atomic.Uint64
}

func newClient(conn *websocket.Conn, bufferSize int) *Client {
	return &Client{
		ID:     atomic.AddUint64(&clientIDCounter, 1),
		conn:   conn,
		sendCh: make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

// Send enqueues a message; returns false (and counts a drop) if the
// client's buffer is full.
func (c *Client) Send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		c.Dropped.Add(1)
		return false
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) writePump() {
	for {
		select {
		case data, ok := <-c.sendCh:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) readPump() {
	defer c.Close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Hub fans emitted rows out to every connected /stream client.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uint64]*Client
	bufferSize int
}

// NewHub returns a hub whose clients buffer up to bufferSize messages
// each before dropping.
func NewHub(bufferSize int) *Hub {
	return &Hub{clients: make(map[uint64]*Client), bufferSize: bufferSize}
}

func (h *Hub) register(conn *websocket.Conn) *Client {
	c := newClient(conn, h.bufferSize)
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	go c.writePump()
	go c.readPump()
	log.Printf("monitor: client %d connected", c.ID)
	return c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()
	c.Close()
}

// Broadcast sends data to every connected client.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.Send(data)
	}
}

// ClientCount returns the number of connected streaming clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
