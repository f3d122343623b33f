// Package notify fans completion events out to every open page of a profile.
package notify

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	defaultBuffer = 16
	writeTimeout  = 5 * time.Second
)

// Hub keeps the subscribers of each profile.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan any]struct{}
	buffer int
}

// NewHub creates an empty hub. Each subscriber buffers up to buffer events;
// a non-positive value selects the default.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[chan any]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber for profileID. The returned function
// unregisters it and closes the channel.
func (h *Hub) Subscribe(profileID string) (<-chan any, func()) {
	ch := make(chan any, h.buffer)

	h.mu.Lock()
	set, ok := h.subs[profileID]
	if !ok {
		set = make(map[chan any]struct{})
		h.subs[profileID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[profileID], ch)
			if len(h.subs[profileID]) == 0 {
				delete(h.subs, profileID)
			}
			close(ch)
		})
	}
}

// Publish delivers event to every subscriber of profileID without blocking.
// A subscriber whose buffer is full misses the event.
func (h *Hub) Publish(profileID string, event any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[profileID] {
		select {
		case ch <- event:
		default:
			slog.Warn("dropping event for slow subscriber", "profile", profileID)
		}
	}
}

// Subscribers returns the number of live subscribers of profileID.
func (h *Hub) Subscribers(profileID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[profileID])
}

// Serve upgrades the request to a WebSocket and streams the events of
// profileID as JSON until either side goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, profileID string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// Pages never send anything; CloseRead handles control frames and
	// cancels ctx when the peer closes.
	ctx := conn.CloseRead(r.Context())

	events, cancel := h.Subscribe(profileID)
	defer cancel()

	slog.Debug("websocket subscribed", "profile", profileID)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := write(ctx, conn, ev); err != nil {
				slog.Debug("websocket write failed", "profile", profileID, "error", err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
