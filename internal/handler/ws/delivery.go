// Package ws is the WebSocket transport collaborator: it frames messages,
// feeds connection events into the lifecycle handler, and pushes outbound
// envelopes down the socket.
package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/webitel/im-relay-service/internal/domain/registry"
	"github.com/webitel/im-relay-service/internal/domain/wire"
	"github.com/webitel/im-relay-service/internal/service"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 54 * time.Second
)

type Handler struct {
	logger    *slog.Logger
	lifecycle service.Lifecycler
	upgrader  websocket.Upgrader
}

func NewHandler(logger *slog.Logger, lifecycle service.Lifecycler) *Handler {
	return &Handler{
		logger:    logger,
		lifecycle: lifecycle,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Security: adjust for production
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The claimed username in the path is trusted verbatim; whether it
	// identifies the peer via a pre-authenticated route is not this layer's
	// concern.
	username := chi.URLParam(r, "username")
	if username == "" {
		http.Error(w, "username required", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	conn, err := h.lifecycle.OnOpen(r.Context(), username)
	if err != nil {
		return
	}
	defer h.lifecycle.OnClose(username, conn)

	l := h.logger.With(slog.String("username", username), slog.String("conn_id", conn.GetID().String()))
	l.Info("ws opened")

	go h.readLoop(ws, conn, username)

	h.writePump(l, ws, conn)
	l.Info("ws closed")
}

// readLoop feeds inbound frames to the lifecycle handler until the socket
// fails, then shuts the connector down so the write pump exits too.
func (h *Handler) readLoop(ws *websocket.Conn, conn registry.Connector, username string) {
	defer conn.Close()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.lifecycle.OnError(username, err)
			}
			return
		}
		h.lifecycle.OnMessage(username, raw)
	}
}

// writePump drains the connector mailbox onto the socket. On shutdown it
// flushes whatever is still queued (the exile farewell relies on this) before
// sending the close frame.
func (h *Handler) writePump(l *slog.Logger, ws *websocket.Conn, conn registry.Connector) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case env := <-conn.Recv():
			if !h.write(l, ws, env) {
				return
			}
		case <-conn.Done():
			h.flush(l, ws, conn)
			return
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) flush(l *slog.Logger, ws *websocket.Conn, conn registry.Connector) {
	for {
		select {
		case env := <-conn.Recv():
			if !h.write(l, ws, env) {
				return
			}
		default:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// write pushes one envelope. A transport failure is logged and ends the pump;
// it is not propagated anywhere else.
func (h *Handler) write(l *slog.Logger, ws *websocket.Conn, env *wire.Envelope) bool {
	data, err := wire.Encode(env)
	if err != nil {
		l.Error("failed to encode envelope", "error", err)
		return true
	}

	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		l.Warn("ws send failed", "error", err)
		return false
	}
	return true
}
