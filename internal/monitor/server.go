package monitor

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// BookView is the JSON shape returned by /api/books/{symbol}.
type BookView struct {
	Symbol              string  `json:"symbol"`
	BestBid              float64 `json:"best_bid,omitempty"`
	BestAsk              float64 `json:"best_ask,omitempty"`
	Spread               float64 `json:"spread,omitempty"`
	Mid                  float64 `json:"mid,omitempty"`
	BidQty               float64 `json:"bid_qty,omitempty"`
	AskQty               float64 `json:"ask_qty,omitempty"`
	Imbalance            float64 `json:"imbalance,omitempty"`
	BookReady            bool    `json:"book_ready"`
}

// Stats is the JSON shape returned by /api/stats.
type Stats struct {
	UptimeSec      float64 `json:"uptime_sec"`
	RecordsTotal   int64   `json:"records_total"`
	BadTotal       int64   `json:"bad_total"`
	LateTotal      int64   `json:"late_total"`
	Reconnects     int64   `json:"reconnects"`
	StreamClients  int     `json:"stream_clients"`
	SessionState   string  `json:"session_state"`
}

// BookLookup resolves a ticker to its current snapshot; ok is false for
// an unconfigured symbol.
type BookLookup func(ticker string) (BookView, bool)

// StatsFn returns the current aggregate counters.
type StatsFn func() Stats

// Server is the monitor's HTTP + WebSocket surface.
type Server struct {
	Hub       *Hub
	Books     BookLookup
	StatsFunc StatsFn
	StartedAt time.Time

	upgrader websocket.Upgrader
}

// NewServer returns a monitor server. books/stats may be nil; with no
// books, /api/books answers 404, and with no stats, /api/stats reports
// zero counters.
func NewServer(hub *Hub, books BookLookup, stats StatsFn) *Server {
	return &Server{
		Hub: hub, Books: books, StatsFunc: stats, StartedAt: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register attaches the monitor's routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/books/{symbol}", s.handleBook)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /stream", s.handleStream)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime_sec": time.Since(s.StartedAt).Seconds(),
	})
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("symbol")
	if s.Books == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no book source configured"})
		return
	}
	view, ok := s.Books(ticker)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "symbol not found: " + ticker})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var st Stats
	if s.StatsFunc != nil {
		st = s.StatsFunc()
	}
	st.UptimeSec = time.Since(s.StartedAt).Seconds()
	st.StreamClients = s.Hub.ClientCount()
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := s.Hub.register(conn)
	defer s.Hub.unregister(c)
	<-c.done
}
