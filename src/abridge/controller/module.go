package controller

import (
	"github.com/agda-tools/agda-bridge/src/abridge/controller/daemon"
	"github.com/agda-tools/agda-bridge/src/abridge/controller/dispatch"
	"github.com/agda-tools/agda-bridge/src/abridge/controller/supervisor"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(daemon.New),
	fx.Provide(supervisor.New),
	fx.Provide(dispatch.New),
)
