package service

import "go.uber.org/fx"

var Module = fx.Module("service",
	fx.Provide(
		NewDeliveryJournal,
		func(j *DeliveryJournal) DeliveryObserver { return j },

		fx.Annotate(NewReservedIdentityAuth, fx.As(new(Auther))),
		fx.Annotate(NewDeliveryService, fx.As(new(Deliverer))),
		fx.Annotate(NewMessageRouter, fx.As(new(Dispatcher))),
		fx.Annotate(NewSessionService, fx.As(new(Lifecycler))),
	),
)
