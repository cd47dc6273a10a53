package daemon

import (
	"context"
	"fmt"

	"github.com/agda-tools/agda-bridge/src/abridge/entity"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/command"
	abrerrors "github.com/agda-tools/agda-bridge/src/abridge/internal/errors"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/wire"
	"github.com/agda-tools/agda-bridge/src/abridge/mapper"
	"github.com/gofrs/uuid"
	"go.lsp.dev/protocol"
	"go.uber.org/multierr"
)

// StartAgda launches an agda process for the session. The returned session
// carries the detected version, state and pid. A session whose previous
// process died can be started again; one with a live process cannot.
func (c *controller) StartAgda(ctx context.Context, params *entity.StartAgdaParams) (*entity.Session, error) {
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting session from context: %w", err)
	}

	if state, err := c.supervisor.State(s.UUID); err == nil {
		if !state.Terminal() {
			return nil, fmt.Errorf("session %s already has a running process", s.UUID)
		}
		// Clear the dead process record so the session can be reused.
		if err := c.supervisor.Kill(ctx, s.UUID); err != nil {
			c.logger.Warnw("clearing dead process", "session", s.UUID, "error", err)
		}
	}

	if params.WorkspaceRoot != "" {
		s.WorkspaceRoot = params.WorkspaceRoot
	}
	// Editors that don't pick a binary get the configured default.
	s.AgdaPath = params.AgdaPath
	s.AgdaArgs = params.AgdaArgs
	if s.AgdaPath == "" {
		s.AgdaPath = c.defaultAgdaPath
		if len(s.AgdaArgs) == 0 {
			s.AgdaArgs = c.defaultAgdaArgs
		}
	}

	if err := c.supervisor.Start(ctx, s); err != nil {
		s.State = entity.StateDead
		c.sessions.Set(ctx, s)
		// Session-fatal conditions surface once as an actionable message;
		// the RPC error alone may never reach the user's attention.
		if abrerrors.IsSessionFatal(err) {
			c.editor.ShowMessage(ctx, &protocol.ShowMessageParams{
				Message: err.Error(),
				Type:    protocol.MessageTypeError,
			})
		}
		return nil, err
	}

	if err := c.sessions.Set(ctx, s); err != nil {
		c.supervisor.Kill(ctx, s.UUID)
		return nil, fmt.Errorf("setting updated session state: %w", err)
	}

	go c.forwardEvents(s.UUID)
	return s, nil
}

// SubmitCommand maps submitted parameters onto a command, runs it through
// dispatch, and returns the records collected up to the next ready prompt.
func (c *controller) SubmitCommand(ctx context.Context, params *entity.SubmitParams) ([]wire.Response, error) {
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting session from context: %w", err)
	}

	req, err := mapper.SubmitParamsToCommand(params)
	if err != nil {
		return nil, err
	}

	// A load rereads the file from disk, so cached line tables for it can
	// no longer be trusted.
	switch req.Kind {
	case command.KindLoad, command.KindLoadNoMetas, command.KindCompile:
		c.editor.InvalidateFile(req.FilePath)
	}

	return c.dispatch.Submit(ctx, s.UUID, req)
}

// RestartAgda kills the session's process and starts a fresh one with the
// same parameters.
func (c *controller) RestartAgda(ctx context.Context) (*entity.Session, error) {
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting session from context: %w", err)
	}
	if s.AgdaPath == "" {
		return nil, fmt.Errorf("session %s has no process to restart", s.UUID)
	}

	if _, err := c.supervisor.State(s.UUID); err == nil {
		if err := c.supervisor.Kill(ctx, s.UUID); err != nil {
			return nil, fmt.Errorf("killing process before restart: %w", err)
		}
	}

	return c.StartAgda(ctx, &entity.StartAgdaParams{
		WorkspaceRoot: s.WorkspaceRoot,
		AgdaPath:      s.AgdaPath,
		AgdaArgs:      s.AgdaArgs,
	})
}

// KillAgda terminates the session's process.
func (c *controller) KillAgda(ctx context.Context) error {
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return fmt.Errorf("getting session from context: %w", err)
	}

	var errs error
	if err := c.supervisor.Kill(ctx, s.UUID); err != nil {
		errs = multierr.Append(errs, err)
	}

	s.State = entity.StateDead
	if err := c.sessions.Set(ctx, s); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// Status reports the session with its live process state.
func (c *controller) Status(ctx context.Context) (*entity.Session, error) {
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting session from context: %w", err)
	}

	if state, err := c.supervisor.State(s.UUID); err == nil {
		s.State = state
	}
	return s, nil
}

// forwardEvents pushes the process's event stream to the editor for the
// life of the process. Command responses also arrive here, so the editor
// sees asynchronous records (progress, highlighting) without polling.
func (c *controller) forwardEvents(id uuid.UUID) {
	events, cancel, err := c.supervisor.Subscribe(id)
	if err != nil {
		c.logger.Warnw("subscribing to process events", "session", id, "error", err)
		return
	}
	defer cancel()

	version, err := c.supervisor.Version(id)
	if err != nil {
		c.logger.Warnw("reading process version", "session", id, "error", err)
		return
	}

	ctx := context.WithValue(context.Background(), entity.SessionContextKey, id)
	for event := range events {
		switch event.Kind {
		case entity.EventResponse:
			if err := c.editor.NotifyResponse(ctx, version, event.Response); err != nil {
				c.logger.Warnw("forwarding response", "session", id, "error", err)
			}
		case entity.EventReady:
			c.notifyState(ctx, id, entity.StateReady)
		case entity.EventBinaryChanged:
			c.editor.ShowMessage(ctx, &protocol.ShowMessageParams{
				Message: "The agda binary changed on disk. Restart the session to pick up the new build.",
				Type:    protocol.MessageTypeWarning,
			})
		case entity.EventFatal:
			c.logger.Errorw("process stream failed", "session", id, "error", event.Err)
		case entity.EventExit:
			if event.ExitCode != 0 || event.Signal != "" {
				c.editor.ShowMessage(ctx, &protocol.ShowMessageParams{
					Message: fmt.Sprintf("agda exited unexpectedly (exit code %d%s)", event.ExitCode, signalSuffix(event.Signal)),
					Type:    protocol.MessageTypeError,
				})
			}
			c.notifyState(ctx, id, entity.StateDead)
			return
		}
	}
}

// notifyState records a state transition and pushes it to the editor.
func (c *controller) notifyState(ctx context.Context, id uuid.UUID, state entity.SessionState) {
	if s, err := c.sessions.Get(ctx, id); err == nil {
		s.State = state
		if err := c.sessions.Set(ctx, s); err != nil {
			c.logger.Warnw("recording state transition", "session", id, "error", err)
		}
	}
	if err := c.editor.NotifyStatus(ctx, string(state)); err != nil {
		c.logger.Debugw("pushing state transition", "session", id, "error", err)
	}
}

func signalSuffix(signal string) string {
	if signal == "" {
		return ""
	}
	return ", signal " + signal
}
