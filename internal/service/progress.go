package service

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"binance-futures-export/internal/core"
	"binance-futures-export/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// ProgressHub pushes sync progress to websocket subscribers as JSON text
// frames. A subscriber joining mid-run first receives the latest update.
// Subscribers that fall behind are disconnected.
type ProgressHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	last    []byte
	closed  bool
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Publish is a core.ProgressFunc.
func (h *ProgressHub) Publish(p core.Progress) {
	msg, err := json.Marshal(p)
	if err != nil {
		logger.Error("❌ Failed to encode progress", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last = msg
	for conn, send := range h.clients {
		select {
		case send <- msg:
		default:
			logger.Warn("🐢 Progress subscriber too slow, dropping", "remote", conn.RemoteAddr().String())
			h.dropLocked(conn)
		}
	}
}

func (h *ProgressHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("⚠️ Progress websocket upgrade failed", "error", err)
		return
	}

	send := make(chan []byte, sendBuffer)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = send
	if h.last != nil {
		send <- h.last
	}
	h.mu.Unlock()
	logger.Debug("📡 Progress subscriber connected", "remote", conn.RemoteAddr().String())

	go h.readLoop(conn)
	h.writeLoop(conn, send)
}

// Clients returns the number of connected subscribers.
func (h *ProgressHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber with a normal closure and refuses new ones.
func (h *ProgressHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.clients {
		h.dropLocked(conn)
	}
}

// readLoop discards client frames; it exists to notice disconnects.
func (h *ProgressHub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.mu.Lock()
			h.dropLocked(conn)
			h.mu.Unlock()
			return
		}
	}
}

func (h *ProgressHub) writeLoop(conn *websocket.Conn, send <-chan []byte) {
	defer conn.Close()
	for msg := range send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.mu.Lock()
			h.dropLocked(conn)
			h.mu.Unlock()
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "sync finished"),
		time.Now().Add(writeWait))
}

func (h *ProgressHub) dropLocked(conn *websocket.Conn) {
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
}
