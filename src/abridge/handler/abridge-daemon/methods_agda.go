package abridgedaemon

import (
	"context"

	"github.com/agda-tools/agda-bridge/src/abridge/mapper"
	"go.lsp.dev/jsonrpc2"
)

// StartAgda extracts entity.StartAgdaParams from the request and launches a process for this session.
func (r *jsonRPCRouter) StartAgda(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToStartAgdaParams(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	result, err := r.daemon.StartAgda(ctx, params)
	if err != nil {
		r.stats.Counter("start_failed").Inc(1)
		return reply(ctx, nil, err)
	}

	r.stats.Counter("start_succeeded").Inc(1)
	return reply(ctx, result, nil)
}

// SubmitCommand extracts entity.SubmitParams from the request and runs one command to its ready prompt.
func (r *jsonRPCRouter) SubmitCommand(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToSubmitParams(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	result, err := r.daemon.SubmitCommand(ctx, params)
	if err != nil {
		return reply(ctx, nil, err)
	}

	return reply(ctx, result, nil)
}

// RestartAgda replaces the session's process with a fresh one using the same parameters.
func (r *jsonRPCRouter) RestartAgda(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	result, err := r.daemon.RestartAgda(ctx)
	if err != nil {
		return reply(ctx, nil, err)
	}

	return reply(ctx, result, nil)
}

// KillAgda terminates the session's process.
func (r *jsonRPCRouter) KillAgda(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	err := r.daemon.KillAgda(ctx)
	return reply(ctx, nil, err)
}

// Status reports the session with its live process state.
func (r *jsonRPCRouter) Status(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	result, err := r.daemon.Status(ctx)
	if err != nil {
		return reply(ctx, nil, err)
	}

	return reply(ctx, result, nil)
}
