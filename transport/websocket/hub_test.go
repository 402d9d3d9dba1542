package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/fibtiles/game/engine"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func dial(t *testing.T, hub *Hub, sessionID string) *websocket.Conn {
	t.Helper()
	before := hub.ClientCount(sessionID)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	waitFor(t, func() bool { return hub.ClientCount(sessionID) > before })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return message
}

func testState(score int) *engine.GameState {
	b, _ := engine.BoardFromRows([][]int{
		{3, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 1},
		{0, 0, 0, 0},
	})
	return &engine.GameState{Board: b, Score: score, Status: engine.InProgress, MaxTile: 3}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub register channels are nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if len(hub.sessions["test-session"]) != 1 {
		t.Errorf("Expected 1 client in session, got %d", len(hub.sessions["test-session"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("Send channel should be closed")
	}
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub()
	sessionID := "broadcast-test"

	client := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	other := &Client{hub: hub, sessionID: "other", send: make(chan []byte, 256)}
	hub.registerClient(client)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{SessionID: sessionID, GameState: testState(100), Event: "state_update"})

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Event != "state_update" {
			t.Errorf("Expected event 'state_update', got %s", message.Event)
		}
		if message.GameState.Score != 100 || message.GameState.Board[0][0] != 3 {
			t.Error("GameState not correctly transmitted")
		}
	default:
		t.Error("No message queued for client")
	}

	if len(other.send) != 0 {
		t.Error("Client of another session received the message")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	client := &Client{hub: hub, sessionID: "slow", send: make(chan []byte, 1)}
	hub.registerClient(client)

	hub.broadcastMessage(&Message{SessionID: "slow", Event: "one"})
	hub.broadcastMessage(&Message{SessionID: "slow", Event: "two"})

	if _, exists := hub.sessions["slow"]; exists {
		t.Error("Client with a full send buffer should be unregistered")
	}
}

func TestWebSocketLifecycle(t *testing.T) {
	hub := startHub(t)
	conn := dial(t, hub, "ws-test")

	if n := hub.ClientCount("ws-test"); n != 1 {
		t.Errorf("Expected 1 client in session, got %d", n)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 0 })
}

func TestWebSocketBroadcast(t *testing.T) {
	hub := startHub(t)
	conn := dial(t, hub, "msg-test")

	hub.BroadcastToSession("msg-test", testState(200))

	message := readMessage(t, conn)
	if message.SessionID != "msg-test" {
		t.Errorf("Expected sessionID 'msg-test', got %s", message.SessionID)
	}
	if message.GameState == nil || message.GameState.Score != 200 {
		t.Error("GameState not correctly received")
	}

	hub.BroadcastEvent("msg-test", "hint", map[string]string{"move": "left"})
	message = readMessage(t, conn)
	if message.Event != "hint" {
		t.Errorf("Expected event 'hint', got %s", message.Event)
	}
}

func TestWebSocketInboundMove(t *testing.T) {
	hub := NewHub()
	calls := make(chan string, 4)
	hub.OnMove(func(ctx context.Context, sessionID, direction string, reset bool) (*engine.GameState, error) {
		calls <- sessionID + "/" + direction
		if direction == "sideways" {
			return nil, errors.New("invalid move: \"sideways\"")
		}
		return testState(8), nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dial(t, hub, "play")
	watcher := dial(t, hub, "play")

	if err := conn.WriteJSON(ClientMessage{Direction: "left"}); err != nil {
		t.Fatalf("Failed to send move: %v", err)
	}

	for _, c := range []*websocket.Conn{conn, watcher} {
		message := readMessage(t, c)
		if message.Event != "state_update" || message.GameState.Score != 8 {
			t.Errorf("Expected state update with score 8, got %+v", message)
		}
	}
	if call := <-calls; call != "play/left" {
		t.Errorf("Handler called with %s", call)
	}

	// Errors only reach the sender
	if err := conn.WriteJSON(ClientMessage{Direction: "sideways"}); err != nil {
		t.Fatalf("Failed to send move: %v", err)
	}
	message := readMessage(t, conn)
	if message.Event != "error" {
		t.Errorf("Expected error event, got %s", message.Event)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	message = readMessage(t, conn)
	if message.Event != "error" {
		t.Errorf("Expected error event for malformed message, got %s", message.Event)
	}

	watcher.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if _, _, err := watcher.ReadMessage(); err == nil {
		t.Error("Watcher should not receive error replies")
	}
}

func TestHubStops(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// Broadcasting after shutdown must not block
	hub.BroadcastToSession("gone", testState(1))
	for i := 0; i < 300; i++ {
		hub.BroadcastEvent("gone", "tick", i)
	}
	if hub.ClientCount("gone") != 0 {
		t.Error("Expected no clients after shutdown")
	}
}
