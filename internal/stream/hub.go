// Package stream fans vault events out to websocket subscribers.
package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Event is one broadcast message. Payload mirrors the journal payload.
type Event struct {
	Kind    string         `json:"kind"`
	Caller  string         `json:"caller,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

const subscriberBuffer = 32

type subscriber struct {
	ch chan Event
}

// Hub is a best-effort fan-out: a subscriber whose buffer is full misses
// the event rather than stalling the publisher.
type Hub struct {
	Logger *zap.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{Logger: logger, subs: make(map[*subscriber]struct{})}
}

// Broadcast delivers the event to every live subscriber without blocking.
func (h *Hub) Broadcast(event Event) {
	if h == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.ch <- event:
		default:
			if h.Logger != nil {
				h.Logger.Debug("stream subscriber lagging, event dropped",
					zap.String("kind", event.Kind))
			}
		}
	}
}

// SubscriberCount reports the number of live connections.
func (h *Hub) SubscriberCount() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) attach() *subscriber {
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) detach(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// Serve upgrades the request and streams events until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin checks are the proxy's job
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "shutdown")
	}()

	sub := h.attach()
	defer h.detach(sub)

	ctx := r.Context()

	// Reads are drained only to detect the close handshake.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sub.ch:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
