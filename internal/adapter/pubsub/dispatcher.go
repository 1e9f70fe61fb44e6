package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker/v2"
	"github.com/webitel/im-relay-service/internal/domain/event"
	"github.com/webitel/im-relay-service/internal/service"
)

// Interface guards
var (
	_ service.PresencePublisher = (*PresenceDispatcher)(nil)
	_ service.PresencePublisher = noopPresence{}
)

// PresenceDispatcher publishes presence events to the bus. A circuit breaker
// sheds publishes while the broker is unreachable so connection handlers never
// stall on a dead bus.
type PresenceDispatcher struct {
	logger    *slog.Logger
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[struct{}]
}

func NewPresenceDispatcher(logger *slog.Logger, publisher message.Publisher) *PresenceDispatcher {
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "amqp-presence",
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("presence breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	return &PresenceDispatcher{
		logger:    logger,
		publisher: publisher,
		breaker:   breaker,
	}
}

func (d *PresenceDispatcher) PublishPresence(ctx context.Context, ev *event.Presence) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("presence dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if _, err := d.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, d.publisher.Publish(ev.GetRoutingKey(), msg)
	}); err != nil {
		return fmt.Errorf("presence dispatcher: publish to %s: %w", ev.GetRoutingKey(), err)
	}
	return nil
}

// noopPresence stands in when the bus surface is disabled.
type noopPresence struct{}

func (noopPresence) PublishPresence(context.Context, *event.Presence) error { return nil }

func NoopPresencePublisher() service.PresencePublisher { return noopPresence{} }
