package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if _, err := hub.RegisterClient(conn); err != nil {
			conn.Close()
		}
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return msg
}

func TestHubBroadcastsToEveryClient(t *testing.T) {
	hub, _ := startHub(t)
	first := dialHub(t, hub)
	second := dialHub(t, hub)
	waitForClients(t, hub, 2)

	id := uuid.New()
	publisher := NewHubPublisher(hub)
	if err := publisher.Publish(context.Background(), Message{Type: EventQuizDeleted, Payload: QuizDeletedPayload{ID: id}}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		if msg.Type != EventQuizDeleted {
			t.Fatalf("type = %q, want %q", msg.Type, EventQuizDeleted)
		}
		payload, ok := msg.Payload.(map[string]interface{})
		if !ok || payload["id"] != id.String() {
			t.Fatalf("payload = %#v", msg.Payload)
		}
	}
}

func TestHubAnswersPing(t *testing.T) {
	hub, _ := startHub(t)
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	if err := conn.WriteJSON(Message{Type: messagePing}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != messagePong {
		t.Fatalf("type = %q, want %q", msg.Type, messagePong)
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, _ := startHub(t)
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubStopsWithContext(t *testing.T) {
	hub, cancel := startHub(t)
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	cancel()

	// The client sees the connection close once the hub stops
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection to close")
	}

	err := hub.Broadcast(context.Background(), []byte(`{}`))
	if !errors.Is(err, ErrHubStopped) {
		t.Fatalf("Broadcast after stop = %v, want ErrHubStopped", err)
	}
}

func TestRedisRelay(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	hub, _ := startHub(t)
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	channel := "quizzes:test:" + uuid.NewString()

	relayDone := make(chan error, 1)
	go func() { relayDone <- RelayRedisEvents(ctx, client, channel, hub, nil) }()

	// Wait until the relay has subscribed
	deadline := time.Now().Add(2 * time.Second)
	for {
		counts, err := client.PubSubNumSub(ctx, channel).Result()
		if err == nil && counts[channel] > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("relay never subscribed to %s", channel)
		}
		time.Sleep(10 * time.Millisecond)
	}

	publisher := NewRedisPublisher(client, channel)
	if err := publisher.Publish(ctx, Message{Type: EventQuizCreated}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != EventQuizCreated {
		t.Fatalf("type = %q, want %q", msg.Type, EventQuizCreated)
	}

	cancel()
	select {
	case err := <-relayDone:
		if err != nil {
			t.Fatalf("relay returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("relay did not stop")
	}
}
