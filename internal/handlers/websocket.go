package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// WSMessage is the envelope for all WebSocket messages sent to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// LogEntry is a log line streamed to connected UI clients
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// JobStatusUpdate is the payload of job_update messages
type JobStatusUpdate struct {
	JobID      string    `json:"job_id"`
	BatchID    string    `json:"batch_id,omitempty"`
	SourceName string    `json:"source_name"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// WebSocketHandler manages WebSocket connections for live UI updates
type WebSocketHandler struct {
	logger   arbor.ILogger
	upgrader websocket.Upgrader

	mu           sync.RWMutex
	clients      map[*websocket.Conn]string
	writeMutexes map[*websocket.Conn]*sync.Mutex

	// Identifies this server process so clients can detect restarts
	serverInstanceID string
}

// NewWebSocketHandler creates a WebSocket handler and subscribes it to job
// and batch lifecycle events.
func NewWebSocketHandler(events interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:          make(map[*websocket.Conn]string),
		writeMutexes:     make(map[*websocket.Conn]*sync.Mutex),
		serverInstanceID: common.NewEventID(),
	}

	if events != nil {
		h.subscribeToEvents(events)
	}

	return h
}

func (h *WebSocketHandler) subscribeToEvents(events interfaces.EventService) {
	jobEvents := []interfaces.EventType{
		interfaces.EventJobCreated,
		interfaces.EventJobStarted,
		interfaces.EventJobCompleted,
		interfaces.EventJobFailed,
	}
	for _, eventType := range jobEvents {
		if err := events.Subscribe(eventType, h.handleJobEvent); err != nil {
			h.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to subscribe to job event")
		}
	}

	batchEvents := []interfaces.EventType{
		interfaces.EventBatchStarted,
		interfaces.EventBatchCompleted,
	}
	for _, eventType := range batchEvents {
		if err := events.Subscribe(eventType, h.handleBatchEvent); err != nil {
			h.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to subscribe to batch event")
		}
	}
}

func (h *WebSocketHandler) handleJobEvent(ctx context.Context, event interfaces.Event) error {
	job, ok := event.Payload.(*models.ExtractionJob)
	if !ok {
		return nil
	}

	h.Broadcast(WSMessage{
		Type: "job_update",
		Payload: JobStatusUpdate{
			JobID:      job.ID,
			BatchID:    job.BatchID,
			SourceName: job.SourceName,
			Status:     string(job.Status),
			Error:      job.Error,
			Timestamp:  time.Now(),
		},
	})
	return nil
}

func (h *WebSocketHandler) handleBatchEvent(ctx context.Context, event interfaces.Event) error {
	h.Broadcast(WSMessage{
		Type: "batch_update",
		Payload: map[string]interface{}{
			"event":     string(event.Type),
			"payload":   event.Payload,
			"timestamp": time.Now(),
		},
	})
	return nil
}

// HandleWebSocket upgrades the connection and keeps it registered until the
// client disconnects.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	clientID := common.NewClientID()

	h.mu.Lock()
	h.clients[conn] = clientID
	h.writeMutexes[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().
		Str("client_id", clientID).
		Int("clients", clientCount).
		Msg("WebSocket client connected")

	h.sendTo(conn, WSMessage{
		Type: "connected",
		Payload: map[string]string{
			"client_id":          clientID,
			"server_instance_id": h.serverInstanceID,
		},
	})

	// Read loop; incoming messages are ignored, the socket is one-way
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.removeClient(conn)
	h.logger.Info().
		Str("client_id", clientID).
		Msg("WebSocket client disconnected")
}

// BroadcastLog streams a log line to all connected clients
func (h *WebSocketHandler) BroadcastLog(entry LogEntry) {
	h.Broadcast(WSMessage{Type: "log", Payload: entry})
}

// Broadcast sends a message to every connected client. Clients that fail a
// write are dropped.
func (h *WebSocketHandler) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := h.writeTo(conn, data); err != nil {
			h.removeClient(conn)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHandler) sendTo(conn *websocket.Conn, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := h.writeTo(conn, data); err != nil {
		h.removeClient(conn)
	}
}

func (h *WebSocketHandler) writeTo(conn *websocket.Conn, data []byte) error {
	h.mu.RLock()
	writeMu, ok := h.writeMutexes[conn]
	h.mu.RUnlock()
	if !ok {
		return websocket.ErrCloseSent
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		delete(h.writeMutexes, conn)
		conn.Close()
	}
	h.mu.Unlock()
}
