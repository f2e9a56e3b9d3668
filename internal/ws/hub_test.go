package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/airwatch/internal/event"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

func newTestClient(id string) *Client {
	return &Client{
		clientID: id,
		send:     make(chan Message, 256),
		logger:   zap.NewNop(),
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a, b := newTestClient("a"), newTestClient("b")

	hub.Register(a)
	hub.Register(b)
	if hub.ClientCount() != 2 {
		t.Fatalf("ClientCount() = %d, want 2", hub.ClientCount())
	}

	hub.Unregister(a)
	hub.Unregister(a)
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
	if _, ok := <-a.send; ok {
		t.Error("send channel should be closed after Unregister")
	}
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	clients := []*Client{newTestClient("a"), newTestClient("b"), newTestClient("c")}
	for _, c := range clients {
		hub.Register(c)
	}

	hub.Broadcast(Message{Type: MessageReading})

	for _, c := range clients {
		select {
		case msg := <-c.send:
			if msg.Type != MessageReading {
				t.Errorf("client %s got %q", c.clientID, msg.Type)
			}
		default:
			t.Errorf("client %s received nothing", c.clientID)
		}
	}
}

func TestHub_BroadcastDropsWhenFull(t *testing.T) {
	hub := NewHub(zap.NewNop())
	slow := &Client{clientID: "slow", send: make(chan Message, 1), logger: zap.NewNop()}
	hub.Register(slow)

	hub.Broadcast(Message{Type: MessageReading})
	hub.Broadcast(Message{Type: MessageAlertSent})

	if len(slow.send) != 1 {
		t.Errorf("buffered = %d, want 1", len(slow.send))
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestClient("c")
			hub.Register(c)
			hub.Broadcast(Message{Type: MessageReading})
			hub.Unregister(c)
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestHandler_StreamsBusEvents(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	h := NewHandler(bus, nil, zap.NewNop())
	defer h.Close()

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/live"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(2 * time.Second)
	for h.Hub().ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	bus.Publish(ctx, event.Event{Topic: event.TopicAlertDispatched, Payload: map[string]string{"recipient": "me@example.com"}})

	var msg struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if msg.Type != string(MessageAlertSent) || msg.Data["recipient"] != "me@example.com" {
		t.Errorf("got %+v", msg)
	}
}
