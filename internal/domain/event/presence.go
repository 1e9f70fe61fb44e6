// Package event holds domain events exported from the relay to the message bus.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Exportable is implemented by events that are re-published to the bus.
type Exportable interface {
	GetRoutingKey() string
}

// Interface guard
var _ Exportable = (*Presence)(nil)

// Presence announces a user coming online or going offline on this node.
type Presence struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Online      bool   `json:"online"`
	OnlineCount int    `json:"online_count"`
	OccurredAt  int64  `json:"occurred_at"`
}

func NewPresence(username string, online bool, onlineCount int) *Presence {
	return &Presence{
		ID:          uuid.NewString(),
		Username:    username,
		Online:      online,
		OnlineCount: onlineCount,
		OccurredAt:  time.Now().UnixMilli(),
	}
}

func (e *Presence) GetRoutingKey() string {
	return "im_relay.presence.v1"
}
