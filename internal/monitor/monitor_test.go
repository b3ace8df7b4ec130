package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	s := NewServer(NewHub(4), nil, nil)
	mux := http.NewServeMux()
	s.Register(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestBookEndpointNotFoundWithoutLookup(t *testing.T) {
	s := NewServer(NewHub(4), nil, nil)
	mux := http.NewServeMux()
	s.Register(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/api/books/PETR4", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a configured lookup, got %d", rr.Code)
	}
}

func TestBookEndpointReturnsSnapshot(t *testing.T) {
	lookup := func(ticker string) (BookView, bool) {
		if ticker != "PETR4" {
			return BookView{}, false
		}
		return BookView{Symbol: "PETR4", BestBid: 10.0, BestAsk: 10.1, BookReady: true}, true
	}
	s := NewServer(NewHub(4), lookup, nil)
	mux := http.NewServeMux()
	s.Register(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/api/books/PETR4", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got BookView
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BestBid != 10.0 || !got.BookReady {
		t.Fatalf("unexpected book view: %+v", got)
	}
}

func TestStatsEndpointIncludesStreamClientCount(t *testing.T) {
	hub := NewHub(4)
	s := NewServer(hub, nil, func() Stats { return Stats{RecordsTotal: 42} })
	mux := http.NewServeMux()
	s.Register(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/api/stats", nil))
	var got Stats
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RecordsTotal != 42 || got.StreamClients != 0 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestHubBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(1)
	c := newClient(nil, 1)
	hub.mu.Lock()
	hub.clients[c.ID] = c
	hub.mu.Unlock()

	if !c.Send([]byte("a")) {
		t.Fatal("expected first send to succeed")
	}
	if c.Send([]byte("b")) {
		t.Fatal("expected second send to be dropped on a full buffer")
	}
	if c.Dropped.Load() != 1 {
		t.Fatalf("expected dropped count 1, got %d", c.Dropped.Load())
	}
}
