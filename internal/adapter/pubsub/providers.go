// Package pubsub adapts the relay to the AMQP message bus: providers for
// watermill publishers/subscribers and the presence event dispatcher.
package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/im-relay-service/config"
)

type PublisherProvider struct {
	cfg    *config.Config
	logger watermill.LoggerAdapter
}

func NewPublisherProvider(cfg *config.Config, logger watermill.LoggerAdapter) *PublisherProvider {
	return &PublisherProvider{cfg: cfg, logger: logger}
}

func (p *PublisherProvider) Build() (message.Publisher, error) {
	amqpCfg := amqp.NewDurablePubSubConfig(p.cfg.AMQP.URL, nil)
	return amqp.NewPublisher(amqpCfg, p.logger)
}

type SubscriberProvider struct {
	cfg    *config.Config
	logger watermill.LoggerAdapter
}

func NewSubscriberProvider(cfg *config.Config, logger watermill.LoggerAdapter) *SubscriberProvider {
	return &SubscriberProvider{cfg: cfg, logger: logger}
}

// Build creates a subscriber with a node-scoped durable queue per topic.
func (p *SubscriberProvider) Build(queueSuffix string) (message.Subscriber, error) {
	amqpCfg := amqp.NewDurablePubSubConfig(p.cfg.AMQP.URL,
		amqp.GenerateQueueNameTopicNameWithSuffix(queueSuffix))
	return amqp.NewSubscriber(amqpCfg, p.logger)
}
