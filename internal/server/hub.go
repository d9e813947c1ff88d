package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/meetscribe/internal/emit"
	"github.com/MrWong99/meetscribe/internal/observe"
)

// clientBuffer is the per-subscriber send queue depth. A subscriber that
// falls further behind than this starts losing events rather than stalling
// the pipeline.
const clientBuffer = 64

// wireEvent is the JSON envelope sent to websocket subscribers.
type wireEvent struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans pipeline events out to websocket subscribers. It implements
// [emit.Emitter] so the coordinator can publish straight into it.
type Hub struct {
	metrics *observe.Metrics

	mu      sync.Mutex
	clients map[chan []byte]struct{}
	closed  bool
}

var _ emit.Emitter = (*Hub)(nil)

// NewHub returns an empty hub.
func NewHub(metrics *observe.Metrics) *Hub {
	return &Hub{
		metrics: metrics,
		clients: make(map[chan []byte]struct{}),
	}
}

// Emit marshals the event once and queues it to every subscriber. Slow
// subscribers lose the event; delivery is best effort by design of the sink
// contract.
func (h *Hub) Emit(event string, payload any) error {
	msg, err := json.Marshal(wireEvent{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("server: marshal event %q: %w", event, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			slog.Debug("event dropped for slow subscriber", "event", event)
		}
	}
	return nil
}

// ServeHTTP implements http.Handler by upgrading to a websocket event
// stream.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleEvents(w, r)
}

// HandleEvents upgrades the request to a websocket and streams events until
// the client disconnects or the server shuts down.
func (h *Hub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The assistant frontend runs on a different origin in development.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := make(chan []byte, clientBuffer)
	if !h.register(ch) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.unregister(ch)

	h.metrics.EventSubscribers.Add(r.Context(), 1)
	defer h.metrics.EventSubscribers.Add(context.Background(), -1)

	// We never expect client messages; CloseRead surfaces disconnects.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Close detaches all subscribers. Emit becomes a no-op for new events; the
// per-connection goroutines exit via their read contexts.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
	}
}

func (h *Hub) register(ch chan []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[ch] = struct{}{}
	return true
}

func (h *Hub) unregister(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ch)
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
