// Package stream adapts the broadcast hub to network transports.
package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/STRATINT/zonewatch/internal/hub"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 512
)

// WebSocketHandler upgrades requests and streams hub events as JSON text
// frames, one event per frame.
type WebSocketHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates a websocket adapter for h.
func NewWebSocketHandler(h *hub.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from a separate dev origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "websocket"),
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	sub := h.hub.Subscribe()
	h.logger.Info("Client connected", "subscriber_id", sub.ID, "remote", conn.RemoteAddr().String())

	go h.writePump(conn, sub)
	go h.readPump(conn, sub)
}

// readPump drains control frames and detects disconnects.
func (h *WebSocketHandler) readPump(conn *websocket.Conn, sub *hub.Subscriber) {
	defer func() {
		h.hub.Unsubscribe(sub)
		conn.Close()
		h.logger.Info("Client disconnected", "subscriber_id", sub.ID)
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "subscriber_id", sub.ID, "error", err)
			}
			return
		}
	}
}

func (h *WebSocketHandler) writePump(conn *websocket.Conn, sub *hub.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case evt := <-sub.Events():
			payload, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error("failed to encode event", "type", evt.Type, "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Warn("websocket write failed", "subscriber_id", sub.ID, "error", err)
				h.hub.Unsubscribe(sub)
				return
			}
		case <-sub.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.hub.Unsubscribe(sub)
				return
			}
		}
	}
}
