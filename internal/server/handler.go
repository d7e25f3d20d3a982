package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/Mschirtzinger/sheetsync/internal/bisync"
)

// StatsData summarizes the passes seen since the server started
type StatsData struct {
	Runs     int                      `json:"runs"`
	ByStatus map[bisync.Status]int    `json:"by_status"`
	ByReason map[bisync.Reason]int    `json:"by_reason"`
	LastRuns map[string]bisync.Result `json:"last_runs"`
}

// Handler turns pass results into broadcast messages and keeps statistics.
type Handler struct {
	server *Server
	logger *log.Logger

	mu    sync.Mutex
	stats StatsData
}

// NewHandler creates a new result handler connected to a server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		server: server,
		logger: logger,
		stats: StatsData{
			ByStatus: make(map[bisync.Status]int),
			ByReason: make(map[bisync.Reason]int),
			LastRuns: make(map[string]bisync.Result),
		},
	}
}

// OnSyncResult records a pass and broadcasts it with updated stats. It has
// the signature of the daemon's OnResult hook.
func (h *Handler) OnSyncResult(res bisync.Result) {
	h.mu.Lock()
	h.stats.Runs++
	h.stats.ByStatus[res.Status]++
	if res.Reason != bisync.ReasonNone {
		h.stats.ByReason[res.Reason]++
	}
	h.stats.LastRuns[res.Table+"/"+string(res.Direction)] = res
	h.mu.Unlock()

	data, err := json.Marshal(res)
	if err != nil {
		h.logger.Printf("Failed to marshal sync result: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeSyncResult,
		Timestamp: time.Now(),
		Data:      data,
	})

	h.broadcastStats()
}

// Stats returns a copy of the current statistics
func (h *Handler) Stats() StatsData {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := StatsData{
		Runs:     h.stats.Runs,
		ByStatus: make(map[bisync.Status]int, len(h.stats.ByStatus)),
		ByReason: make(map[bisync.Reason]int, len(h.stats.ByReason)),
		LastRuns: make(map[string]bisync.Result, len(h.stats.LastRuns)),
	}
	for k, v := range h.stats.ByStatus {
		out.ByStatus[k] = v
	}
	for k, v := range h.stats.ByReason {
		out.ByReason[k] = v
	}
	for k, v := range h.stats.LastRuns {
		out.LastRuns[k] = v
	}
	return out
}

func (h *Handler) statsMessage() (Message, error) {
	data, err := json.Marshal(h.Stats())
	if err != nil {
		return Message{}, err
	}
	return Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      data,
	}, nil
}

// broadcastStats sends current statistics
func (h *Handler) broadcastStats() {
	msg, err := h.statsMessage()
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}
	h.server.Broadcast(msg)
}
