package ws

import (
	websrv "github.com/webitel/im-relay-service/infra/server/web"
	"go.uber.org/fx"
)

var Module = fx.Module("ws-handler",
	fx.Provide(NewHandler),
	fx.Invoke(func(srv *websrv.Server, h *Handler) {
		srv.Router().Get("/ws/{username}", h.ServeHTTP)
	}),
)
