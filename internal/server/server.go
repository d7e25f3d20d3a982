// Package server exposes sheetsync over HTTP.
//
// Endpoints:
//   - POST /webhooks/sheets                      pull the sheet into the table
//   - POST /webhooks/table-to-sheet/{table}      push a table to the sheet
//   - GET  /health                               liveness
//   - GET  /state                                the sync state store
//   - GET  /ws                                   live pass results over WebSocket
//
// Webhook responses carry the pass Result as JSON. Success and skipped
// passes answer 200; failed passes answer 502 so the caller can retry.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/Mschirtzinger/sheetsync/internal/bisync"
	"github.com/Mschirtzinger/sheetsync/internal/state"
)

// MessageType defines the type of broadcast message
type MessageType string

const (
	// MessageTypeSyncResult carries a bisync.Result
	MessageTypeSyncResult MessageType = "sync_result"

	// MessageTypeStats carries StatsData
	MessageTypeStats MessageType = "stats"
)

// Message represents a broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Server serves webhooks and manages WebSocket subscribers.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	runner   bisync.Runner
	store    state.Store
	table    string
	sheetRef string
	handler  *Handler

	// WebSocket client management
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Port to listen on (default: 8080, 0 picks a free port)
	Port int

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger

	// Runner performs the passes requested by webhooks.
	Runner bisync.Runner

	// Store backs GET /state. Optional.
	Store state.Store

	// Table and SheetRef are the target of POST /webhooks/sheets.
	Table    string
	SheetRef string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:   8080,
		Logger: log.Default(),
	}
}

// NewServer creates a new server
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:      fmt.Sprintf(":%d", config.Port),
		runner:    config.Runner,
		store:     config.Store,
		table:     config.Table,
		sheetRef:  config.SheetRef,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
	s.handler = NewHandler(s, config.Logger)
	return s
}

// Handler returns the result handler. Other drivers report their passes
// through it so subscribers see every pass.
func (s *Server) Handler() *Handler {
	return s.handler
}

// Routes returns the HTTP handler for all endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/sheets", s.handleSheetWebhook)
	mux.HandleFunc("POST /webhooks/table-to-sheet/{table}", s.handleTableToSheet)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return mux
}

// Start begins the HTTP server and WebSocket handler
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:     s.Routes(),
		ReadTimeout: 10 * time.Second,
		// Webhook responses wait for the pass to finish.
		WriteTimeout: 2 * time.Minute,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping server")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()

	s.logger.Println("Server stopped")
	return nil
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// broadcastLoop handles message broadcasting to all clients
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			// Send outside the read lock to avoid blocking broadcasts
			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// handleSheetWebhook runs sheet_to_table for the configured table.
func (s *Server) handleSheetWebhook(w http.ResponseWriter, r *http.Request) {
	s.runAndRespond(w, r, bisync.Request{
		Table:     s.table,
		SheetRef:  s.sheetRef,
		Direction: state.SheetToTable,
	})
}

// handleTableToSheet runs table_to_sheet for the table in the path.
func (s *Server) handleTableToSheet(w http.ResponseWriter, r *http.Request) {
	s.runAndRespond(w, r, bisync.Request{
		Table:     r.PathValue("table"),
		SheetRef:  s.sheetRef,
		Direction: state.TableToSheet,
	})
}

func (s *Server) runAndRespond(w http.ResponseWriter, r *http.Request, req bisync.Request) {
	if s.runner == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  string(bisync.StatusError),
			"message": "no sync runner configured",
		})
		return
	}

	// The pass runs to completion even if the caller hangs up.
	res := s.runner.Run(context.WithoutCancel(r.Context()), req)
	s.handler.OnSyncResult(res)

	code := http.StatusOK
	if res.Status == bisync.StatusError {
		code = http.StatusBadGateway
		if errors.Is(res.Err, bisync.ErrInvalidRequest) {
			code = http.StatusBadRequest
		}
	}
	writeJSON(w, code, res)
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected (total: %d)", clientCount)

	// Greet with current stats
	welcome, err := s.handler.statsMessage()
	if err == nil {
		data, _ := json.Marshal(welcome)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = conn.Write(ctx, websocket.MessageText, data)
		cancel()
	}

	go s.readLoop(conn)
}

// readLoop keeps the WebSocket connection alive and handles client disconnects
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

// removeClient safely removes a client connection
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"clients": s.ClientCount(),
	})
}

// handleState returns every table's sync state record
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, map[string]state.Record{})
		return
	}
	records, err := s.store.Load()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  string(bisync.StatusError),
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleRoot returns basic server information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>sheetsync</title>
</head>
<body>
    <h1>sheetsync</h1>
    <p>Table: <code>%s</code></p>
    <p>WebSocket endpoint: <code>ws://%s/ws</code></p>
    <p>Health check: <a href="/health">/health</a> &middot; State: <a href="/state">/state</a></p>
</body>
</html>`, s.table, r.Host)
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
