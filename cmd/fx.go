package cmd

import (
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/webitel/im-relay-service/config"
	websrv "github.com/webitel/im-relay-service/infra/server/web"
	"github.com/webitel/im-relay-service/internal/adapter/pubsub"
	"github.com/webitel/im-relay-service/internal/domain/registry"
	amqphandler "github.com/webitel/im-relay-service/internal/handler/amqp"
	webhandler "github.com/webitel/im-relay-service/internal/handler/web"
	wshandler "github.com/webitel/im-relay-service/internal/handler/ws"
	"github.com/webitel/im-relay-service/internal/service"
	"go.uber.org/fx"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
		),
		registry.Module,
		service.Module,
		pubsub.Module,
		websrv.Module,
		wshandler.Module,
		webhandler.Module,
		amqphandler.Module,
	)
}

func ProvideLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}
