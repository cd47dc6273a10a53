// Package notifier sends outbound notifications and calls to the editor.
// All calls should include a context with a session UUID, which routes them
// to the correct editor connection.
package notifier

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/agda-tools/agda-bridge/src/abridge/internal/agdaversion"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/textpos"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/wire"
	"github.com/agda-tools/agda-bridge/src/abridge/mapper"
	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides this gateway to an Fx application.
var Module = fx.Provide(New)

const (
	_errSendToClient = "sending call/notification to editor: %w"

	// Methods pushed to the editor beyond the LSP baseline.
	_methodResponse = "agda/response"
	_methodStatus   = "agda/status"

	_diagnosticSource = "agda"
)

// Gateway is used to send outbound notifications and calls to the editor.
type Gateway interface {
	// RegisterClient registers a new client with the gateway. Should be called each time a new editor connection is initialized.
	RegisterClient(ctx context.Context, id uuid.UUID, conn *jsonrpc2.Conn) error
	// DeregisterClient removes a client from the gateway. Should be called each time an editor connection is closed.
	DeregisterClient(ctx context.Context, id uuid.UUID) error

	// NotifyResponse forwards one decoded record to the editor. Error and
	// warning payloads additionally surface as diagnostics on the files
	// their location references point at.
	NotifyResponse(ctx context.Context, version agdaversion.Version, resp wire.Response) error
	// NotifyStatus reports a session lifecycle transition.
	NotifyStatus(ctx context.Context, status string) error

	// InvalidateFile drops cached line tables for a file whose contents may
	// have changed, e.g. before it is rechecked.
	InvalidateFile(path string)

	// Methods from protocol.Client interface.
	LogMessage(ctx context.Context, params *protocol.LogMessageParams) (err error)
	PublishDiagnostics(ctx context.Context, params *protocol.PublishDiagnosticsParams) (err error)
	ShowMessage(ctx context.Context, params *protocol.ShowMessageParams) (err error)
}

type gateway struct {
	clients     map[uuid.UUID]protocol.Client
	connections map[uuid.UUID]jsonrpc2.Conn
	clientsMu   sync.Mutex
	logger      *zap.Logger
	lines       *textpos.FileLines
}

// New returns a Gateway for sending editor notifications and calls.
func New(logger *zap.Logger) Gateway {
	return &gateway{
		clients:     make(map[uuid.UUID]protocol.Client),
		connections: make(map[uuid.UUID]jsonrpc2.Conn),
		logger:      logger,
		lines:       textpos.NewFileLines(os.ReadFile),
	}
}

func (g *gateway) RegisterClient(ctx context.Context, id uuid.UUID, conn *jsonrpc2.Conn) error {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()

	client := protocol.ClientDispatcher(*conn, g.logger)
	g.clients[id] = client
	g.connections[id] = *conn

	return nil
}

func (g *gateway) DeregisterClient(ctx context.Context, id uuid.UUID) error {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()

	delete(g.clients, id)
	delete(g.connections, id)

	return nil
}

func (g *gateway) NotifyResponse(ctx context.Context, version agdaversion.Version, resp wire.Response) error {
	_, conn, err := g.getClient(ctx)
	if err != nil {
		return fmt.Errorf(_errSendToClient, err)
	}

	if err := conn.Notify(ctx, _methodResponse, resp); err != nil {
		return fmt.Errorf(_errSendToClient, err)
	}

	if resp.Kind == wire.KindDisplayInfo && resp.Info != nil {
		if err := g.publishInfoDiagnostics(ctx, version, resp.Info); err != nil {
			return err
		}
	}
	return nil
}

func (g *gateway) NotifyStatus(ctx context.Context, status string) error {
	_, conn, err := g.getClient(ctx)
	if err != nil {
		return fmt.Errorf(_errSendToClient, err)
	}
	params := struct {
		Status string `json:"status"`
	}{Status: status}
	if err := conn.Notify(ctx, _methodStatus, params); err != nil {
		return fmt.Errorf(_errSendToClient, err)
	}
	return nil
}

func (g *gateway) InvalidateFile(path string) {
	g.lines.Invalidate(path)
}

func (g *gateway) LogMessage(ctx context.Context, params *protocol.LogMessageParams) (err error) {
	c, _, err := g.getClient(ctx)
	if err != nil {
		return fmt.Errorf(_errSendToClient, err)
	}
	return c.LogMessage(ctx, params)
}

func (g *gateway) PublishDiagnostics(ctx context.Context, params *protocol.PublishDiagnosticsParams) (err error) {
	c, _, err := g.getClient(ctx)
	if err != nil {
		return fmt.Errorf(_errSendToClient, err)
	}
	return c.PublishDiagnostics(ctx, params)
}

func (g *gateway) ShowMessage(ctx context.Context, params *protocol.ShowMessageParams) (err error) {
	c, _, err := g.getClient(ctx)
	if err != nil {
		return fmt.Errorf(_errSendToClient, err)
	}
	return c.ShowMessage(ctx, params)
}

// publishInfoDiagnostics scans error and warning text for source locations
// and publishes a diagnostic per resolved link, so the editor can underline
// the offending span without parsing Agda's output itself.
func (g *gateway) publishInfoDiagnostics(ctx context.Context, version agdaversion.Version, info *wire.DisplayInfo) error {
	byFile := make(map[string][]protocol.Diagnostic)

	collect := func(texts []string, severity protocol.DiagnosticSeverity) {
		for _, text := range texts {
			for _, segment := range textpos.ScanLocations(text, version, g.lines) {
				link := segment.Link
				if link == nil || !link.Resolved {
					continue
				}
				byFile[link.Path] = append(byFile[link.Path], protocol.Diagnostic{
					Range: protocol.Range{
						Start: protocol.Position{Line: uint32(link.Line - 1), Character: uint32(link.UnitColumn)},
						End:   protocol.Position{Line: uint32(link.EndLine - 1), Character: uint32(link.UnitEndColumn)},
					},
					Severity: severity,
					Source:   _diagnosticSource,
					Message:  text,
				})
			}
		}
	}

	collect(info.Errors, protocol.DiagnosticSeverityError)
	collect(info.Warnings, protocol.DiagnosticSeverityWarning)

	for path, diagnostics := range byFile {
		if err := g.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
			URI:         uri.File(path),
			Diagnostics: diagnostics,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (g *gateway) getClient(ctx context.Context) (protocol.Client, jsonrpc2.Conn, error) {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()

	id, err := mapper.ContextToSessionUUID(ctx)
	if err != nil {
		return nil, nil, err
	}

	client, ok := g.clients[id]
	if !ok {
		return nil, nil, fmt.Errorf("client with id %q not found", id)
	}

	conn, ok := g.connections[id]
	if !ok {
		return nil, nil, fmt.Errorf("client with id %q not found", id)
	}
	return client, conn, nil
}
