// Package ws exposes the real-time violation stream over WebSocket.
package ws

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/metisguard/metis/internal/hub"
)

// Handler serves WebSocket observers backed by the violation hub.
type Handler struct {
	hub *hub.Hub
}

// NewHandler creates a WebSocket handler over the given hub.
func NewHandler(h *hub.Hub) *Handler {
	return &Handler{hub: h}
}

// ServeViolations handles an observer connection. The client first receives
// the stored backlog, most recent first, then live violation events until it
// disconnects. Clients send nothing; the stream is one-way.
func (h *Handler) ServeViolations(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	sub, err := h.hub.Attach(ctx)
	if err != nil {
		log.Error().Err(err).Msg("websocket attach")
		_ = conn.Close(websocket.StatusInternalError, "attach failed")
		return
	}
	defer sub.Close()

	for _, v := range sub.Backlog {
		payload, encErr := hub.Encode(v)
		if encErr != nil {
			log.Warn().Err(encErr).Int64("violation_id", v.ID).Msg("websocket backlog encode")
			continue
		}
		if writeErr := conn.Write(ctx, websocket.MessageText, payload); writeErr != nil {
			log.Debug().Err(writeErr).Msg("websocket write")
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-sub.Events:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
