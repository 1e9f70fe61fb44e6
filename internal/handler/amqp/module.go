package amqp

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/im-relay-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("amqp-handler",
	fx.Provide(
		NewCommandHandler,
		NewBusRouter,
	),
	fx.Invoke(
		RegisterHandlers,
		RunBusRouter,
	),
)

// RunBusRouter ties the watermill router to the fx lifecycle. With the bus
// disabled the router is never started and holds no resources.
func RunBusRouter(lc fx.Lifecycle, cfg *config.Config, router *message.Router, logger *slog.Logger) {
	if !cfg.AMQP.Enabled() {
		logger.Info("amqp disabled, bus consumer not started")
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := router.Run(context.Background()); err != nil {
					logger.Error("bus router stopped", "error", err)
				}
			}()
			select {
			case <-router.Running():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		OnStop: func(ctx context.Context) error {
			return router.Close()
		},
	})
}
