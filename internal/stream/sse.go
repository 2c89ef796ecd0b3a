package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/STRATINT/zonewatch/internal/hub"
)

const defaultHeartbeat = 15 * time.Second

// SSEHandler streams hub events as server-sent events. The event name is the
// event type and the data line carries the same JSON object as the websocket
// feed.
type SSEHandler struct {
	hub       *hub.Hub
	logger    *slog.Logger
	heartbeat time.Duration
}

// NewSSEHandler creates a server-sent events adapter for h.
func NewSSEHandler(h *hub.Hub, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{
		hub:       h,
		logger:    logger.With("component", "sse"),
		heartbeat: defaultHeartbeat,
	}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	h.logger.Debug("SSE client connected", "subscriber_id", sub.ID)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE client context done", "subscriber_id", sub.ID, "err", ctx.Err())
			return
		case <-sub.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt := <-sub.Events():
			payload, err := json.Marshal(evt)
			if err != nil {
				h.logger.Warn("Failed to marshal SSE message", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
