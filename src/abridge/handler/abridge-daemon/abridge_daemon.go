// Package abridgedaemon wires editor connections to the daemon controller.
package abridgedaemon

import (
	"context"
	"fmt"

	daemon "github.com/agda-tools/agda-bridge/src/abridge/controller/daemon"
	"github.com/agda-tools/agda-bridge/src/abridge/entity"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/jsonrpcfx"
	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally"
	"go.lsp.dev/jsonrpc2"
)

// Handler tracks each editor connection for the life of the connection.
type Handler = jsonrpcfx.ConnectionManager

// New constructs the connection handler and registers it with the JSON-RPC
// inbound.
func New(ctrl daemon.Controller, jsonrpcmod jsonrpcfx.JSONRPCModule, stats tally.Scope) Handler {
	c := jsonRPCConnectionManager{
		ctrl:  ctrl,
		stats: stats.SubScope("json_rpc"),
	}
	jsonrpcmod.RegisterConnectionManager(&c)

	return &c
}

type jsonRPCConnectionManager struct {
	ctrl  daemon.Controller
	stats tally.Scope
}

// NewConnection will store a new connection and return a router that includes its UUID.
func (c *jsonRPCConnectionManager) NewConnection(ctx context.Context, conn *jsonrpc2.Conn) (router jsonrpcfx.Router, err error) {
	id, err := c.ctrl.InitSession(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("error while creating new connection: %w", err)
	}

	r := jsonRPCRouter{
		daemon: c.ctrl,
		uuid:   id,
		stats:  c.stats,
	}

	return &r, nil
}

// RemoveConnection cleans up a closed connection.
func (c *jsonRPCConnectionManager) RemoveConnection(ctx context.Context, id uuid.UUID) {
	// Ensure session is removed even if no Exit call has been received.
	ctx = context.WithValue(ctx, entity.SessionContextKey, id)
	c.ctrl.EndSession(ctx, id)
}
