// Package amqp consumes bus-driven relay commands, currently only system-wide
// broadcasts published by other platform services.
package amqp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"github.com/webitel/im-relay-service/config"
	"github.com/webitel/im-relay-service/internal/adapter/pubsub"
	"github.com/webitel/im-relay-service/internal/domain/wire"
	"github.com/webitel/im-relay-service/internal/service"
)

const (
	// ------------------- TOPICS (ROUTING KEYS) -----------------
	TopicBroadcast = "im_relay.broadcast.v1"

	// ------------------- QUEUES (CONSUMERS) --------------------
	broadcastProcessorQueue = "im-relay.broadcast-processor.v1"
)

type CommandHandler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
}

func NewCommandHandler(logger *slog.Logger, deliverer service.Deliverer) *CommandHandler {
	return &CommandHandler{logger: logger, deliverer: deliverer}
}

type broadcastCommand struct {
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

// OnBroadcastV1 fans a bus command out to every registered connection. Malformed
// commands are acked and dropped; a poison payload must not wedge the queue.
func (h *CommandHandler) OnBroadcastV1(msg *message.Message) error {
	var cmd broadcastCommand
	if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
		h.logger.Error("broadcast command decode failed", "msg_id", msg.UUID, "error", err)
		return nil
	}
	if cmd.Content == "" {
		h.logger.Warn("broadcast command without content", "msg_id", msg.UUID)
		return nil
	}

	msgType := cmd.Type
	if msgType == "" {
		msgType = wire.TypeText
	}

	h.deliverer.Broadcast(wire.SourceServer, cmd.Content, msgType)
	return nil
}

func NewBusRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{}, logger)
}

// RegisterHandlers binds every consumer to its node-scoped queue. Each node
// keeps its own queue so a broadcast command reaches all nodes, not one of them.
func RegisterHandlers(cfg *config.Config, router *message.Router, h *CommandHandler, subs *pubsub.SubscriberProvider, logger *slog.Logger) error {
	if !cfg.AMQP.Enabled() {
		return nil
	}

	instanceID := uuid.NewString()[:8]

	configs := []struct {
		name    string
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{"ON_BROADCAST", TopicBroadcast, h.OnBroadcastV1},
	}

	for _, c := range configs {
		handlerQueue := fmt.Sprintf("%s.%s.%s", broadcastProcessorQueue, instanceID, c.name)

		sub, err := subs.Build(handlerQueue)
		if err != nil {
			return fmt.Errorf("build subscriber for %s: %w", c.name, err)
		}

		router.AddNoPublisherHandler(c.name, c.topic, sub, c.handler).AddMiddleware(
			CorrelationMiddleware,
			LoggingMiddleware(logger),
			NewRetryMiddleware().Middleware,
			middleware.Timeout(30*time.Second),
		)
	}

	logger.Info("amqp pipeline ready", "queue", broadcastProcessorQueue)
	return nil
}
