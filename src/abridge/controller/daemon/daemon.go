// Package daemon implements the agda-bridge daemon's business logic. It
// owns session lifecycle for each editor connection and mediates between
// the editor-facing API and the supervised agda processes.
package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agda-tools/agda-bridge/src/abridge/controller/dispatch"
	"github.com/agda-tools/agda-bridge/src/abridge/controller/supervisor"
	"github.com/agda-tools/agda-bridge/src/abridge/entity"
	notifier "github.com/agda-tools/agda-bridge/src/abridge/gateway/editor-client"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/wire"
	"github.com/agda-tools/agda-bridge/src/abridge/repository/session"
	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides this controller to an Fx application.
var Module = fx.Provide(New)

const (
	_idleTimeoutMinutesKey = "idleTimeoutMinutes"
	_agdaPathKey           = "agda.path"
	_agdaArgsKey           = "agda.args"

	_defaultAgdaPath = "agda"

	_serverName = "Agda Bridge"
)

// Controller orchestrates the business logic for each request.
type Controller interface {
	// Connection lifecycle, per protocol.
	Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error)
	Initialized(ctx context.Context, params *protocol.InitializedParams) error
	Shutdown(ctx context.Context) error
	Exit(ctx context.Context) error
	RequestFullShutdown(ctx context.Context) error

	// Process control and command traffic.
	StartAgda(ctx context.Context, params *entity.StartAgdaParams) (*entity.Session, error)
	SubmitCommand(ctx context.Context, params *entity.SubmitParams) ([]wire.Response, error)
	RestartAgda(ctx context.Context) (*entity.Session, error)
	KillAgda(ctx context.Context) error
	Status(ctx context.Context) (*entity.Session, error)

	// Custom methods for use within this service.
	InitSession(ctx context.Context, conn *jsonrpc2.Conn) (uuid.UUID, error)
	EndSession(ctx context.Context, id uuid.UUID) error
}

// Params are inbound parameters to initialize a new controller.
type Params struct {
	fx.In

	Shutdowner fx.Shutdowner
	Sessions   session.Repository
	Editor     notifier.Gateway
	Supervisor supervisor.Controller
	Dispatch   dispatch.Controller
	Logger     *zap.SugaredLogger
	Config     config.Provider
	Stats      tally.Scope
}

type controller struct {
	sessions   session.Repository
	shutdowner fx.Shutdowner
	editor     notifier.Gateway
	supervisor supervisor.Controller
	dispatch   dispatch.Controller
	logger     *zap.SugaredLogger
	stats      tally.Scope

	defaultAgdaPath string
	defaultAgdaArgs []string

	fullShutdown       bool
	idleTimer          *time.Timer
	idleTimerMu        sync.Mutex
	idleTimeoutMinutes time.Duration
}

// New constructs a new top-level controller for the service.
func New(p Params) (Controller, error) {
	ctx := context.Background()

	var timeoutMinutesRaw int64
	if err := p.Config.Get(_idleTimeoutMinutesKey).Populate(&timeoutMinutesRaw); err != nil || timeoutMinutesRaw == 0 {
		return nil, fmt.Errorf("unable to get idle timeout from config: %w", err)
	}

	defaultAgdaPath := _defaultAgdaPath
	if err := p.Config.Get(_agdaPathKey).Populate(&defaultAgdaPath); err != nil {
		return nil, fmt.Errorf("unable to get agda path from config: %w", err)
	}
	var defaultAgdaArgs []string
	if err := p.Config.Get(_agdaArgsKey).Populate(&defaultAgdaArgs); err != nil {
		return nil, fmt.Errorf("unable to get agda args from config: %w", err)
	}

	c := &controller{
		sessions:   p.Sessions,
		shutdowner: p.Shutdowner,
		editor:     p.Editor,
		supervisor: p.Supervisor,
		dispatch:   p.Dispatch,
		logger:     p.Logger,
		stats:      p.Stats,

		defaultAgdaPath: defaultAgdaPath,
		defaultAgdaArgs: defaultAgdaArgs,

		idleTimeoutMinutes: time.Duration(timeoutMinutesRaw) * time.Minute,
	}
	c.refreshIdleTimer(ctx)

	return c, nil
}

// refreshIdleTimer ensures that the service shuts down after a defined inactivity period with no connections.
func (c *controller) refreshIdleTimer(ctx context.Context) error {
	c.idleTimerMu.Lock()
	defer c.idleTimerMu.Unlock()

	// First call initializes new timer and leaves it running prior to first connection.
	if c.idleTimer == nil {
		c.idleTimer = time.NewTimer(c.idleTimeoutMinutes)
		go func() {
			<-c.idleTimer.C
			c.logger.Info("idle timeout reached, shutting down")
			c.shutdowner.Shutdown()
		}()
		return nil
	}

	// Subsequent calls stop the timer and reset it only if no connections are active.
	currentSessions, err := c.sessions.SessionCount(ctx)
	if err != nil {
		return fmt.Errorf("error resetting timeout: %w", err)
	}

	c.idleTimer.Stop()
	if currentSessions == 0 {
		c.idleTimer.Reset(c.idleTimeoutMinutes)
	}
	return nil
}
