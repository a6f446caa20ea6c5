package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

const EventModuleUnlocked = "module_unlocked"

const outboundBuffer = 16

// Client is one open unlock stream for a learner.
type Client struct {
	ID       uuid.UUID
	UserID   string
	Outbound chan types.ModuleUnlock

	done      chan struct{}
	closeOnce sync.Once
}

// Hub fans unlock events out to every stream open for the learner. Slow
// clients drop events rather than block the publisher.
type Hub struct {
	mu      sync.RWMutex
	log     *logger.Logger
	clients map[string]map[*Client]struct{}

	Heartbeat time.Duration
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:       log.With("component", "UnlockHub"),
		clients:   make(map[string]map[*Client]struct{}),
		Heartbeat: 15 * time.Second,
	}
}

func (h *Hub) Subscribe(userID string) *Client {
	c := &Client{
		ID:       uuid.New(),
		UserID:   strings.TrimSpace(userID),
		Outbound: make(chan types.ModuleUnlock, outboundBuffer),
		done:     make(chan struct{}),
	}
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("unlock stream subscribed", "client_id", c.ID, "user_id", c.UserID)
	return c
}

func (h *Hub) Unsubscribe(c *Client) {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		h.mu.Lock()
		if set, ok := h.clients[c.UserID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.UserID)
			}
		}
		close(c.done)
		close(c.Outbound)
		h.mu.Unlock()
	})
}

// Broadcast matches the bus forwarder callback.
func (h *Hub) Broadcast(ev types.ModuleUnlock) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[ev.UserID] {
		select {
		case c.Outbound <- ev:
		default:
			h.log.Warn("dropping unlock event; outbound buffer full", "client_id", c.ID, "user_id", ev.UserID)
		}
	}
}

func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Serve streams events to w until the request ends or the client is closed.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, c *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(h.Heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-c.Outbound:
			if !ok {
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				h.log.Warn("failed to marshal unlock event", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", EventModuleUnlocked, b)
			flusher.Flush()
		}
	}
}
