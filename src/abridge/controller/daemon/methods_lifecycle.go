package daemon

import (
	"context"
	"fmt"

	"github.com/agda-tools/agda-bridge/src/abridge/mapper"
	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Initialize stores information about a new connection and reports the
// server's identity. Process startup happens separately via StartAgda, so
// no capabilities beyond the custom methods are advertised here.
func (c *controller) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting session from context: %w", err)
	}

	if len(params.WorkspaceFolders) > 0 {
		s.WorkspaceRoot = protocol.DocumentURI(params.WorkspaceFolders[0].URI).Filename()
		if err := c.sessions.Set(ctx, s); err != nil {
			return nil, fmt.Errorf("setting updated session state: %w", err)
		}
	}

	return &protocol.InitializeResult{
		ServerInfo: &protocol.ServerInfo{
			Name: _serverName,
		},
	}, nil
}

// Initialized handles any actions that need to occur immediately after initialization.
func (c *controller) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	return c.editor.ShowMessage(ctx, &protocol.ShowMessageParams{
		Message: "Connected to Agda Bridge.",
		Type:    protocol.MessageTypeInfo,
	})
}

// Shutdown is sent just before Exit to indicate that the session will exit.
func (c *controller) Shutdown(ctx context.Context) error {
	return nil
}

// Exit will be used to either clean up from an individual connection, or shut down the whole server.
func (c *controller) Exit(ctx context.Context) error {
	if c.fullShutdown {
		// Zero out the timer to trigger immediate shutdown.
		c.idleTimerMu.Lock()
		c.idleTimer.Reset(0)
		c.idleTimerMu.Unlock()
		return nil
	}

	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return fmt.Errorf("error during session exit: %w", err)
	}

	return c.EndSession(ctx, s.UUID)
}

// RequestFullShutdown will set the controller to treat subsequent Shutdown and Exit requests as requests to exit the entire process.
func (c *controller) RequestFullShutdown(ctx context.Context) error {
	c.fullShutdown = true
	return nil
}

// InitSession creates a new empty session and returns its UUID.
func (c *controller) InitSession(ctx context.Context, conn *jsonrpc2.Conn) (uuid.UUID, error) {
	defer c.refreshIdleTimer(ctx)

	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}

	session := mapper.UUIDToSession(id, conn)
	if err := c.editor.RegisterClient(ctx, id, conn); err != nil {
		return uuid.Nil, err
	}

	if err := c.sessions.Set(ctx, session); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// EndSession includes any cleanup at the end of the session, during or after the last JSON-RPC request.
func (c *controller) EndSession(ctx context.Context, id uuid.UUID) error {
	defer c.refreshIdleTimer(ctx)

	// Tear down the session's process if one is still attached. A session
	// that never started or already died has nothing to kill.
	if _, err := c.supervisor.State(id); err == nil {
		if err := c.supervisor.Kill(ctx, id); err != nil {
			c.logger.Warnw("killing process during session end", "session", id, "error", err)
		}
	}

	if err := c.editor.DeregisterClient(ctx, id); err != nil {
		c.logger.Error(err)
	}

	return c.sessions.Delete(ctx, id)
}
