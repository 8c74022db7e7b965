package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/chrisglass/windmobile/internal/holder"
)

// EventMessage is a holder notification as sent to websocket clients.
type EventMessage struct {
	Version   string           `json:"version"`
	Type      holder.EventType `json:"type"`
	Holder    string           `json:"holder"`
	Source    string           `json:"source,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp string           `json:"timestamp"`
	Data      any              `json:"data,omitempty"`
}

// NewEventMessage converts a holder event.
func NewEventMessage[R any](ev holder.Event[R]) EventMessage {
	msg := EventMessage{
		Version:   StatusVersion,
		Type:      ev.Type,
		Holder:    ev.Holder,
		Source:    ev.Source,
		Timestamp: ev.Timestamp.Format(time.RFC3339),
	}
	if ev.Type == holder.EventResult {
		msg.Data = ev.Result
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}

// entry is the type-erased view of a registered holder.
type entry struct {
	snapshot func() any
	failing  func() bool
	refresh  func()
	watch    func(fn func(EventMessage)) func()
	limiter  *rate.Limiter
}

// Server exposes registered holders over HTTP.
//
//	GET  /health                  overall health
//	GET  /holders                 names of registered holders
//	GET  /holders/{name}          cached state of one holder
//	POST /holders/{name}/refresh  refresh now (throttled)
//	GET  /holders/{name}/events   websocket stream of notifications
type Server struct {
	port         int
	version      string
	refreshRPS   float64
	refreshBurst int
	logFn        func(level, msg string)
	upgrader     websocket.Upgrader
	httpServer   *http.Server

	mu      sync.RWMutex
	holders map[string]*entry
}

// ServerConfig holds configuration for the status server.
type ServerConfig struct {
	Port    int    // HTTP server port (default: 8080)
	Version string // windmobile version string

	// RefreshRPS limits manual refreshes per holder (default: 0.2, one every 5s)
	RefreshRPS float64

	// RefreshBurst is the burst allowed for manual refreshes (default: 1)
	RefreshBurst int

	// LogFn is called for log messages (optional)
	LogFn func(level, msg string)
}

// NewServer creates a new status HTTP server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.RefreshRPS == 0 {
		cfg.RefreshRPS = 0.2
	}
	if cfg.RefreshBurst == 0 {
		cfg.RefreshBurst = 1
	}
	return &Server{
		port:         cfg.Port,
		version:      cfg.Version,
		refreshRPS:   cfg.RefreshRPS,
		refreshBurst: cfg.RefreshBurst,
		logFn:        cfg.LogFn,
		holders:      make(map[string]*entry),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Register exposes h under its name. param supplies the parameter used by
// manual refreshes.
func Register[P, R any](s *Server, h *holder.Holder[P, R], param func() P) {
	e := &entry{
		snapshot: func() any { return h.Snapshot() },
		failing: func() bool {
			_, ok := h.LastResult()
			return !ok && h.LastError() != nil
		},
		refresh: func() { h.Refresh(param()) },
		watch: func(fn func(EventMessage)) func() {
			return holder.Watch(h, func(ev holder.Event[R]) { fn(NewEventMessage(ev)) })
		},
		limiter: rate.NewLimiter(rate.Limit(s.refreshRPS), s.refreshBurst),
	}

	s.mu.Lock()
	s.holders[h.Name()] = e
	s.mu.Unlock()
}

// Port returns the port the server is configured to listen on.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /holders", s.handleList)
	mux.HandleFunc("GET /holders/{name}", s.handleHolder)
	mux.HandleFunc("POST /holders/{name}/refresh", s.handleRefresh)
	mux.HandleFunc("GET /holders/{name}/events", s.handleEvents)
	return mux
}

// Start begins listening for HTTP requests. A bind failure is returned
// immediately. This method blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on :%d: %w", s.port, err)
	}
	s.httpServer = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
	}
	s.log("success", "status server listening on %s", ln.Addr())

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

func (s *Server) lookup(name string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.holders[name]
	return e, ok
}

func (s *Server) names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.holders))
	for name := range s.holders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// handleHealth reports degraded when a holder has failed without ever
// producing a result.
// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  HealthStatusOK,
		Version: s.version,
		Holders: s.names(),
	}
	for _, name := range resp.Holders {
		if e, ok := s.lookup(name); ok && e.failing() {
			resp.Failing = append(resp.Failing, name)
		}
	}
	if len(resp.Failing) > 0 {
		resp.Status = HealthStatusDegraded
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /holders
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"holders": s.names()})
}

// GET /holders/{name}
func (s *Server) handleHolder(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("name"))
	if !ok {
		http.Error(w, "Holder not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, e.snapshot())
}

// POST /holders/{name}/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	e, ok := s.lookup(name)
	if !ok {
		http.Error(w, "Holder not found", http.StatusNotFound)
		return
	}
	if !e.limiter.Allow() {
		http.Error(w, "Refresh rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	s.log("info", "status: manual refresh of %s", name)
	e.refresh()
	writeJSON(w, http.StatusAccepted, e.snapshot())
}

// handleEvents streams notifications of one holder until the client
// disconnects. Notifications are dropped for a client that falls behind so a
// slow socket never blocks the holder.
// GET /holders/{name}/events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	e, ok := s.lookup(name)
	if !ok {
		http.Error(w, "Holder not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log("warning", "status: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events := make(chan EventMessage, 16)
	unsubscribe := e.watch(func(msg EventMessage) {
		select {
		case events <- msg:
		default:
			s.log("warning", "status: dropping %s event for slow client", name)
		}
	})
	defer unsubscribe()

	// Reader goroutine: detects client close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case msg := <-events:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				s.log("debug", "status: websocket write failed: %v", err)
				return
			}
		}
	}
}

func (s *Server) log(level, format string, args ...any) {
	if s.logFn != nil {
		s.logFn(level, fmt.Sprintf(format, args...))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
