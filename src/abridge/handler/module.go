package handler

import (
	controller "github.com/agda-tools/agda-bridge/src/abridge/controller"
	daemon "github.com/agda-tools/agda-bridge/src/abridge/controller/daemon"
	handler "github.com/agda-tools/agda-bridge/src/abridge/handler/abridge-daemon"
	"github.com/agda-tools/agda-bridge/src/abridge/repository/session"
	"go.uber.org/fx"
)

// Module provides the agda-bridge daemon's inbound surface into an Fx application.
var Module = fx.Options(
	controller.Module,
	fx.Provide(session.New),
	fx.Provide(handler.New),
	fx.Invoke(func(h handler.Handler) {}),
	fx.Invoke(func(c daemon.Controller) {}),
)
