package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/models"
)

func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func (h *WebSocketHandler) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func waitForClientCount(t *testing.T, handler *WebSocketHandler, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if handler.clientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, want, handler.clientCount())
}

func TestHandleWebSocket_SendsInitialStats(t *testing.T) {
	spider := &stubSpiderService{
		stats: &models.SpiderStats{Pending: 5, Done: 12, Workers: 4, Running: true},
	}
	handler := NewWebSocketHandler(spider, time.Second, arbor.NewLogger())

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dialWebSocket(t, server)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, "stats", msg.Type)
	payload, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 5, payload["pending"])
	assert.EqualValues(t, 12, payload["done"])
	assert.Equal(t, true, payload["running"])

	assert.Equal(t, 1, handler.clientCount())
}

func TestHandleWebSocket_CleansUpOnDisconnect(t *testing.T) {
	handler := NewWebSocketHandler(&stubSpiderService{}, time.Second, arbor.NewLogger())

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dialWebSocket(t, server)
	waitForClientCount(t, handler, 1)

	conn.Close()
	waitForClientCount(t, handler, 0)
}

func TestBroadcastStats_FansOutToAllClients(t *testing.T) {
	spider := &stubSpiderService{
		stats: &models.SpiderStats{Pending: 3, Running: true},
	}
	handler := NewWebSocketHandler(spider, time.Second, arbor.NewLogger())

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	first := dialWebSocket(t, server)
	defer first.Close()
	second := dialWebSocket(t, server)
	defer second.Close()
	waitForClientCount(t, handler, 2)

	// Drain the initial snapshots
	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
	}

	handler.BroadcastStats(context.Background())

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "stats", msg.Type)
	}
}

func TestBroadcastStats_NoClientsSkipsStatsQuery(t *testing.T) {
	spider := &stubSpiderService{}
	handler := NewWebSocketHandler(spider, time.Second, arbor.NewLogger())

	handler.BroadcastStats(context.Background())

	assert.Equal(t, 0, spider.statsCallCount())
}
