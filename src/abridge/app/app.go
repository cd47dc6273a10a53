// Package app assembles the agda-bridge daemon's dependency graph.
package app

import (
	"context"
	"time"

	notifier "github.com/agda-tools/agda-bridge/src/abridge/gateway/editor-client"
	"github.com/agda-tools/agda-bridge/src/abridge/handler"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/clock"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/core"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/executor"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/jsonrpcfx"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/serverinfofile"
	tally "github.com/uber-go/tally"
	"go.uber.org/fx"
)

// Module defines the agda-bridge daemon application module.
var Module = fx.Options(
	handler.Module, // inbounds
	notifier.Module, // outbounds
	jsonrpcfx.Module,
	executor.Module,
	serverinfofile.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(clock.New),
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Tags: map[string]string{
				"service": "agda-bridge",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
)
