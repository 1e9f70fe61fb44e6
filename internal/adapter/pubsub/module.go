package pubsub

import (
	"log/slog"

	"github.com/webitel/im-relay-service/config"
	"github.com/webitel/im-relay-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pubsub",
	fx.Provide(
		NewPublisherProvider,
		NewSubscriberProvider,

		func(cfg *config.Config, pp *PublisherProvider, logger *slog.Logger) (service.PresencePublisher, error) {
			if !cfg.AMQP.Enabled() {
				logger.Info("amqp disabled, presence events stay local")
				return NoopPresencePublisher(), nil
			}
			pub, err := pp.Build()
			if err != nil {
				return nil, err
			}
			return NewPresenceDispatcher(logger, pub), nil
		},
	),
)
