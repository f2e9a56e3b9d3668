// Package ws streams new readings and alert outcomes to connected
// dashboards.
package ws

import (
	"context"
	"net/http"

	"github.com/HerbHall/airwatch/internal/event"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Subscriber is the part of the event bus the handler listens on.
type Subscriber interface {
	Subscribe(topic string, fn event.Handler) (unsubscribe func())
}

// Handler serves the live stream endpoint.
type Handler struct {
	hub            *Hub
	originPatterns []string
	unsubscribe    []func()
	logger         *zap.Logger
}

// NewHandler creates a Handler and subscribes it to reading and alert
// events. originPatterns are the extra origins allowed to connect; an empty
// list only accepts same-origin requests.
func NewHandler(bus Subscriber, originPatterns []string, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:            NewHub(logger),
		originPatterns: originPatterns,
		logger:         logger,
	}
	if bus != nil {
		h.subscribe(bus)
	}
	return h
}

// RegisterRoutes registers the WebSocket route on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/live", h.handleLive)
}

// Hub returns the handler's hub.
func (h *Handler) Hub() *Hub { return h.hub }

// Close detaches the handler from the event bus.
func (h *Handler) Close() {
	for _, unsub := range h.unsubscribe {
		unsub()
	}
	h.unsubscribe = nil
}

// handleLive upgrades the connection and streams events until the client
// disconnects.
func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:     conn,
		clientID: uuid.New().String(),
		send:     make(chan Message, 256),
		logger:   h.logger,
	}
	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

func (h *Handler) subscribe(bus Subscriber) {
	forward := func(t MessageType) event.Handler {
		return func(_ context.Context, e event.Event) {
			h.hub.Broadcast(Message{Type: t, Timestamp: e.Timestamp, Data: e.Payload})
		}
	}
	h.unsubscribe = append(h.unsubscribe,
		bus.Subscribe(event.TopicReadingRecorded, forward(MessageReading)),
		bus.Subscribe(event.TopicAlertDispatched, forward(MessageAlertSent)),
		bus.Subscribe(event.TopicAlertFailed, forward(MessageAlertFailed)),
	)
	h.logger.Debug("subscribed to reading and alert events for WebSocket broadcasting")
}
