package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans published frames out to websocket subscribers. New subscribers
// get the last frame first.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	last    []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

func (h *Hub) Publish(frameType string, payload any) {
	data, err := json.Marshal(Frame{Type: frameType, Payload: payload})
	if err != nil {
		slog.Error("marshal ws frame", "type", frameType, "error", err)
		return
	}

	h.mu.Lock()
	h.last = data
	h.mu.Unlock()

	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// slow client, drop the frame
		}
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	slog.Debug("ws client connected", "clients", len(h.clients))
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		slog.Debug("ws client disconnected", "clients", len(h.clients))
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams frames until the peer leaves.
// Subscribers never send; incoming frames are discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Warn("ws accept", "error", err)
		return
	}

	defer conn.CloseNow()

	c := &wsClient{conn: conn, send: make(chan []byte, 16)}
	h.register(c)
	defer h.unregister(c)

	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case msg := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

// Close disconnects every subscriber. The close handshakes run after the
// lock is released so Publish and unregister are not held up.
func (h *Hub) Close() {
	h.mu.Lock()
	closing := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		closing = append(closing, c)
		delete(h.clients, c)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range closing {
		wg.Add(1)
		go func(c *wsClient) {
			defer wg.Done()
			c.conn.Close(websocket.StatusGoingAway, "server shutdown")
		}(c)
	}
	wg.Wait()
}
