package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/RAWENTERISLIVE/music-ai/domain/repositories"
)

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws/sessions/:id", func(c echo.Context) error {
		return HandleWebSocket(hub, c, c.Param("id"), logger)
	})
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/sessions/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, sessionID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(sessionID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %d clients for %s, got %d", want, sessionID, hub.ClientCount(sessionID))
}

func TestHubDeliversProgressToSessionClients(t *testing.T) {
	hub, server := newTestServer(t)

	watcher := dial(t, server, "session-a")
	other := dial(t, server, "session-b")
	waitForClients(t, hub, "session-a", 1)
	waitForClients(t, hub, "session-b", 1)

	hub.Publish(repositories.ProgressEvent{
		Type:          repositories.ProgressSegmentCompleted,
		SessionID:     "session-a",
		SegmentIndex:  1,
		TotalSegments: 3,
		Timestamp:     time.Now(),
	})

	watcher.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := watcher.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read progress message: %v", err)
	}

	var msg ProgressMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to parse progress message: %v", err)
	}
	if msg.Type != MessageTypeProgress {
		t.Errorf("Expected type %s, got %s", MessageTypeProgress, msg.Type)
	}
	if msg.Event.Type != repositories.ProgressSegmentCompleted || msg.Event.SegmentIndex != 1 {
		t.Errorf("Unexpected event: %+v", msg.Event)
	}

	// Clients of other sessions receive nothing
	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("Expected no message for an unrelated session")
	}
}

func TestHubPingPong(t *testing.T) {
	hub, server := newTestServer(t)
	conn := dial(t, server, "session-ping")
	waitForClients(t, hub, "session-ping", 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("Failed to send ping: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read pong: %v", err)
	}
	msgType, err := ParseMessageType(data)
	if err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if msgType != MessageTypePong {
		t.Errorf("Expected pong, got %s", msgType)
	}
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub, server := newTestServer(t)
	conn := dial(t, server, "session-close")
	waitForClients(t, hub, "session-close", 1)

	conn.Close()
	waitForClients(t, hub, "session-close", 0)

	// Publishing to a session nobody watches is a no-op
	hub.Publish(repositories.ProgressEvent{Type: repositories.ProgressGenerationStarted, SessionID: "session-close"})
}
