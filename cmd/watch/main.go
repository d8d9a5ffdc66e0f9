// Command watch opens a chat session on a running server and prints the
// progress events of every generation run in it.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RAWENTERISLIVE/music-ai/domain/entities"
	"github.com/RAWENTERISLIVE/music-ai/domain/repositories"
	ws "github.com/RAWENTERISLIVE/music-ai/internal/websocket"
)

func main() {
	serverURL := flag.String("server", "http://localhost:3001", "server base URL")
	sessionID := flag.String("session", "", "session to watch; a new one is created when empty")
	flag.Parse()

	base, err := url.Parse(*serverURL)
	if err != nil {
		log.Fatalf("Invalid server URL: %v", err)
	}

	if *sessionID == "" {
		session, err := createSession(*serverURL)
		if err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}
		*sessionID = session.ID
		fmt.Printf("✓ Created session %s\n", session.ID)
	}

	wsURL := url.URL{Scheme: "ws", Host: base.Host, Path: "/ws/sessions/" + *sessionID}
	if base.Scheme == "https" {
		wsURL.Scheme = "wss"
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		if resp != nil {
			log.Fatalf("WebSocket connection failed with status %d: %v", resp.StatusCode, err)
		}
		log.Fatalf("WebSocket connection failed: %v", err)
	}
	defer conn.Close()

	fmt.Printf("✓ Watching %s\n", wsURL.String())
	fmt.Printf("  Generate with: curl -F prompt=... %s/api/v1/sessions/%s/generate\n", *serverURL, *sessionID)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				fmt.Printf("Connection closed: %v\n", err)
				return
			}
			printMessage(message)
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
}

func createSession(serverURL string) (*entities.ChatSession, error) {
	body, _ := json.Marshal(map[string]string{"title": "Watched session"})
	resp, err := http.Post(serverURL+"/api/v1/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var session entities.ChatSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

func printMessage(data []byte) {
	msgType, err := ws.ParseMessageType(data)
	if err != nil {
		fmt.Printf("? %s\n", string(data))
		return
	}
	if msgType != ws.MessageTypeProgress {
		fmt.Printf("%s: %s\n", msgType, string(data))
		return
	}

	var msg ws.ProgressMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		fmt.Printf("? %s\n", string(data))
		return
	}

	ev := msg.Event
	switch {
	case ev.ErrorType != "":
		fmt.Printf("[%s] %s (%s)\n", msg.Timestamp, ev.Type, ev.ErrorType)
	case ev.Type == repositories.ProgressSegmentStarted, ev.Type == repositories.ProgressSegmentCompleted:
		fmt.Printf("[%s] %s %d/%d\n", msg.Timestamp, ev.Type, ev.SegmentIndex+1, ev.TotalSegments)
	default:
		fmt.Printf("[%s] %s\n", msg.Timestamp, ev.Type)
	}
}
