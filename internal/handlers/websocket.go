package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope for every frame pushed to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocketHandler pushes the spider stats view to connected clients.
// Each connection carries its own write mutex; gorilla allows only one
// concurrent writer per connection.
type WebSocketHandler struct {
	spider      interfaces.SpiderService
	interval    time.Duration
	logger      arbor.ILogger
	clients     map[*websocket.Conn]bool
	clientMutex map[*websocket.Conn]*sync.Mutex
	mu          sync.RWMutex
}

func NewWebSocketHandler(spider interfaces.SpiderService, interval time.Duration, logger arbor.ILogger) *WebSocketHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &WebSocketHandler{
		spider:      spider,
		interval:    interval,
		logger:      logger,
		clients:     make(map[*websocket.Conn]bool),
		clientMutex: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Msgf("WebSocket client connected (total: %d)", clientCount)

	// Send initial stats snapshot
	h.sendStats(conn)

	// Handle client disconnection
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", remaining)
	}()

	// Read messages from client (keep connection alive)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// sendStats pushes one stats frame to a single client
func (h *WebSocketHandler) sendStats(conn *websocket.Conn) {
	stats, err := h.spider.Stats(context.Background())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to collect stats for client")
		return
	}

	data, err := json.Marshal(WSMessage{Type: "stats", Payload: stats})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal stats message")
		return
	}

	h.mu.RLock()
	mutex := h.clientMutex[conn]
	h.mu.RUnlock()
	if mutex == nil {
		return
	}

	mutex.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	mutex.Unlock()

	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send initial stats")
	}
}

// BroadcastStats sends the current stats view to all connected clients
func (h *WebSocketHandler) BroadcastStats(ctx context.Context) {
	h.mu.RLock()
	clientCount := len(h.clients)
	h.mu.RUnlock()

	if clientCount == 0 {
		return
	}

	stats, err := h.spider.Stats(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to collect stats for broadcast")
		return
	}

	data, err := json.Marshal(WSMessage{Type: "stats", Payload: stats})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal stats message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutex := mutexes[i]
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to send stats to client")
		}
	}
}

// StartStatsBroadcaster pushes stats on a fixed interval until the
// context is cancelled
func (h *WebSocketHandler) StartStatsBroadcaster(ctx context.Context) {
	common.SafeGo(h.logger, "statsBroadcaster", func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				h.BroadcastStats(ctx)
			case <-ctx.Done():
				h.logger.Debug().Msg("Stats broadcaster shutting down")
				return
			}
		}
	})
}
