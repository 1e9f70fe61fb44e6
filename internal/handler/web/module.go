package web

import (
	websrv "github.com/webitel/im-relay-service/infra/server/web"
	"go.uber.org/fx"
)

var Module = fx.Module("web-handler",
	fx.Provide(NewHandler),
	fx.Invoke(func(srv *websrv.Server, h *Handler) {
		srv.Router().Post("/send2client", h.Broadcast)
		srv.Router().Get("/healthz", h.Health)
		srv.Router().Get("/stats", h.Stats)
	}),
)
