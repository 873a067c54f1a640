package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans tick snapshots out to connected views so open timer pages stay
// in lockstep with the clock.
type Hub struct {
	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]struct{}),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Local single-user surface; views attach from file:// shells too.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler upgrades the request and keeps the connection registered until
// the peer goes away.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		h.mu.Lock()
		h.conns[conn] = struct{}{}
		h.mu.Unlock()
		h.logger.Debug("view connected", zap.String("remote", conn.RemoteAddr().String()))

		go func() {
			defer h.drop(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

// Broadcast sends the payload to every connected view, dropping peers that
// fail to accept it.
func (h *Hub) Broadcast(v any) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Debug("view write failed, dropping", zap.Error(err))
			h.drop(conn)
		}
	}
}

// Close disconnects every view.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}
