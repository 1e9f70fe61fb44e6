// Package web exposes the administrative HTTP surface: the external broadcast
// trigger plus liveness and stats probes.
package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/webitel/im-relay-service/internal/domain/registry"
	"github.com/webitel/im-relay-service/internal/domain/wire"
	"github.com/webitel/im-relay-service/internal/service"
)

const maxBroadcastBytes = 64 << 10

type Handler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	hub       registry.Hubber
	groups    registry.Grouper
	journal   *service.DeliveryJournal
	startedAt time.Time
}

func NewHandler(logger *slog.Logger, deliverer service.Deliverer, hub registry.Hubber, groups registry.Grouper, journal *service.DeliveryJournal) *Handler {
	return &Handler{
		logger:    logger,
		deliverer: deliverer,
		hub:       hub,
		groups:    groups,
		journal:   journal,
		startedAt: time.Now(),
	}
}

// Broadcast pushes the request body as a system-wide txt message to every
// registered connection, bypassing the router.
func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBroadcastBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "empty broadcast content", http.StatusBadRequest)
		return
	}

	h.logger.Info("external broadcast triggered", "bytes", len(body))
	h.deliverer.Broadcast(wire.SourceServer, string(body), wire.TypeText)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statsResponse struct {
	OnlineUsers    int                     `json:"online_users"`
	Groups         int                     `json:"groups"`
	Uptime         string                  `json:"uptime"`
	Delivered      uint64                  `json:"delivered"`
	Dropped        uint64                  `json:"dropped"`
	Failed         uint64                  `json:"failed"`
	RecentFailures []service.FailureRecord `json:"recent_failures,omitempty"`
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	delivered, dropped, failed := h.journal.Counters()
	res := statsResponse{
		OnlineUsers:    h.hub.Size(),
		Groups:         h.groups.Len(),
		Uptime:         time.Since(h.startedAt).Round(time.Second).String(),
		Delivered:      delivered,
		Dropped:        dropped,
		Failed:         failed,
		RecentFailures: h.journal.RecentFailures(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.logger.Error("failed to encode stats", "error", err)
	}
}
