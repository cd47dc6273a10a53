package abridgedaemon

import (
	"context"

	daemon "github.com/agda-tools/agda-bridge/src/abridge/controller/daemon"
	"github.com/agda-tools/agda-bridge/src/abridge/entity"
	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Custom methods exposed by the daemon beyond the LSP lifecycle baseline.
const (
	// MethodStart launches an agda process for this connection's session.
	MethodStart = "abridge/start"
	// MethodSubmit sends one command to the session's process and returns
	// the records produced up to the next ready prompt.
	MethodSubmit = "abridge/submit"
	// MethodRestart replaces the session's process with a fresh one.
	MethodRestart = "abridge/restart"
	// MethodKill terminates the session's process.
	MethodKill = "abridge/kill"
	// MethodStatus reports the session with its live process state.
	MethodStatus = "abridge/status"
	// MethodRequestFullShutdown directs the server to shut down on the next JSON-RPC 'exit' method call.
	MethodRequestFullShutdown = "abridge/requestFullShutdown"
)

type jsonRPCRouter struct {
	daemon daemon.Controller
	uuid   uuid.UUID
	stats  tally.Scope
}

// HandleReq handles routing for a single request.
func (r *jsonRPCRouter) HandleReq(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	ctx = context.WithValue(ctx, entity.SessionContextKey, r.uuid)

	switch req.Method() {
	// Lifecycle related methods.
	case protocol.MethodInitialize:
		return r.Initialize(ctx, reply, req)

	case protocol.MethodInitialized:
		return r.Initialized(ctx, reply, req)

	case protocol.MethodShutdown:
		return r.Shutdown(ctx, reply, req)

	case protocol.MethodExit:
		return r.Exit(ctx, reply, req)

	case MethodRequestFullShutdown:
		return r.RequestFullShutdown(ctx, reply, req)

	// Process control and command traffic.
	case MethodStart:
		return r.StartAgda(ctx, reply, req)

	case MethodSubmit:
		return r.SubmitCommand(ctx, reply, req)

	case MethodRestart:
		return r.RestartAgda(ctx, reply, req)

	case MethodKill:
		return r.KillAgda(ctx, reply, req)

	case MethodStatus:
		return r.Status(ctx, reply, req)

	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

func (r *jsonRPCRouter) UUID() uuid.UUID {
	return r.uuid
}
