package session

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds everything the manager needs to connect to and authenticate
// against the upstream feed.
type Config struct {
	Addr            string
	Username        string
	Password        string
	Contracts       []string
	InterestRateCmd string
	Window          MarketWindow
	DialTimeout     time.Duration
	ReconnectDelay  time.Duration
}

// DefaultConfig fills in the reference tool's timeouts and market window.
func DefaultConfig(addr, user, pass string, contracts []string) Config {
	return Config{
		Addr: addr, Username: user, Password: pass, Contracts: contracts,
		InterestRateCmd: "GQT DI1F27 S",
		Window:          DefaultMarketWindow(),
		DialTimeout:     10 * time.Second,
		ReconnectDelay:  5 * time.Second,
	}
}

// LineHandler processes one line read from the streaming connection.
type LineHandler func(line string)

// Manager owns the connection lifecycle state machine.
type Manager struct {
	cfg Config
	now func() time.Time

	mu    sync.RWMutex
	state State

	reconnects atomic.Int64
	errCount   atomic.Int64
}

// New returns a manager for cfg. now defaults to time.Now.
func New(cfg Config, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{cfg: cfg, now: now, state: Disconnected}
}

// State returns the manager's current lifecycle phase.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Reconnects returns how many times the manager has reconnected.
func (m *Manager) Reconnects() int64 { return m.reconnects.Load() }

// Run drives the connect → authenticate → subscribe → stream loop until
// ctx is cancelled. Every streamed line is passed to onLine. Errors during
// Streaming trigger a 5-second backoff and reconnect (§4.3); outside the
// market window the manager sleeps without dialing.
func (m *Manager) Run(ctx context.Context, onLine LineHandler) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !m.cfg.Window.Contains(m.now()) {
			m.setState(Disconnected)
			if !sleepCtx(ctx, 10*time.Second) {
				return ctx.Err()
			}
			continue
		}

		if err := m.runOnce(ctx, onLine); err != nil {
			m.errCount.Add(1)
			log.Printf("session: %v; reconnecting in %s", err, m.cfg.ReconnectDelay)
			if !sleepCtx(ctx, m.cfg.ReconnectDelay) {
				return ctx.Err()
			}
			m.reconnects.Add(1)
		}
	}
}

func (m *Manager) runOnce(ctx context.Context, onLine LineHandler) error {
	m.setState(Connecting)
	conn, err := net.DialTimeout("tcp", m.cfg.Addr, m.cfg.DialTimeout)
	if err != nil {
		return fmt.Errorf("session: dial: %w", err)
	}
	defer conn.Close()

	// Closing the connection on cancellation unblocks the handshake and
	// stream reads below.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)
		tc.SetNoDelay(true)
		tc.SetWriteBuffer(4 * 1024)
		tc.SetReadBuffer(64 * 1024)
	}

	r := bufio.NewReaderSize(conn, 64*1024)

	m.setState(Authenticating)
	if err := Handshake(conn, r, m.cfg.Username, m.cfg.Password); err != nil {
		return err
	}

	m.setState(Subscribed)
	cmds := SubscribeCommands(m.cfg.Contracts, m.cfg.InterestRateCmd)
	if err := Subscribe(conn, cmds); err != nil {
		return err
	}

	m.setState(Streaming)
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			onLine(line)
		}
		if err != nil {
			return fmt.Errorf("session: stream read: %w", err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
