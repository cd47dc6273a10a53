// Package dispatch serializes commands onto a session's agda process. The
// wire protocol carries no request ids, so attribution is temporal: every
// record arriving between a command's write and the next ready prompt
// belongs to that command. Dispatch enforces the one-command-in-flight
// discipline that makes this sound.
package dispatch

import (
	"context"
	"sync"

	"github.com/agda-tools/agda-bridge/src/abridge/controller/supervisor"
	"github.com/agda-tools/agda-bridge/src/abridge/entity"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/command"
	abrerrors "github.com/agda-tools/agda-bridge/src/abridge/internal/errors"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/wire"
	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides this controller to an Fx application.
var Module = fx.Provide(New)

// Controller submits commands and returns their response windows.
type Controller interface {
	// Submit encodes the request, queues it behind any in-flight command
	// for the same session, writes it, and collects every record up to the
	// next ready prompt. Encoding failures reject before anything is
	// queued or written.
	Submit(ctx context.Context, id uuid.UUID, req command.Request) ([]wire.Response, error)
}

// Params are inbound parameters to initialize a new controller.
type Params struct {
	fx.In

	Logger     *zap.SugaredLogger
	Stats      tally.Scope
	Supervisor supervisor.Controller
}

type controller struct {
	logger     *zap.SugaredLogger
	stats      tally.Scope
	supervisor supervisor.Controller

	mu     sync.Mutex
	queues map[uuid.UUID]chan struct{}
}

// New constructs a new dispatch controller.
func New(p Params) Controller {
	return &controller{
		logger:     p.Logger,
		stats:      p.Stats,
		supervisor: p.Supervisor,
		queues:     make(map[uuid.UUID]chan struct{}),
	}
}

func (c *controller) Submit(ctx context.Context, id uuid.UUID, req command.Request) ([]wire.Response, error) {
	version, err := c.supervisor.Version(id)
	if err != nil {
		return nil, err
	}

	// Encode first: a capability rejection must not consume a queue slot.
	line, err := command.Encode(req, version)
	if err != nil {
		c.stats.Counter("commands_rejected").Inc(1)
		return nil, err
	}

	turn, prev := c.enqueue(id)
	var once sync.Once
	release := func() {
		once.Do(func() {
			close(turn)
			c.dequeue(id, turn)
		})
	}

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			// Keep the chain moving for whoever is queued behind us.
			go func() {
				<-prev
				release()
			}()
			return nil, ctx.Err()
		}
	}

	// Subscribe before writing so no record can slip past between the
	// write and the subscription.
	events, cancel, err := c.supervisor.Subscribe(id)
	if err != nil {
		release()
		return nil, err
	}

	if err := c.supervisor.Write(ctx, id, line); err != nil {
		cancel()
		release()
		c.stats.Counter("commands_failed").Inc(1)
		return nil, err
	}
	c.stats.Counter("commands_submitted").Inc(1)
	c.logger.Debugw("command written", "session", id, "command", string(req.Kind))

	responses := make([]wire.Response, 0, 4)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				release()
				return nil, abrerrors.ErrSessionTerminated
			}
			switch event.Kind {
			case entity.EventResponse:
				responses = append(responses, event.Response)
			case entity.EventReady:
				cancel()
				release()
				c.stats.Counter("commands_completed").Inc(1)
				return responses, nil
			case entity.EventExit:
				cancel()
				release()
				c.stats.Counter("commands_failed").Inc(1)
				return responses, &abrerrors.ProcessExitError{
					ExitCode: event.ExitCode,
					Signal:   event.Signal,
				}
			case entity.EventFatal:
				cancel()
				release()
				c.stats.Counter("commands_failed").Inc(1)
				if event.Err != nil {
					return responses, event.Err
				}
				return responses, abrerrors.ErrSessionTerminated
			}
		case <-ctx.Done():
			// The process cannot be un-asked. Drain to the ready prompt in
			// the background so the session stays usable.
			go func() {
				defer cancel()
				defer release()
				for event := range events {
					if event.Kind == entity.EventReady || event.Kind == entity.EventExit {
						return
					}
				}
			}()
			c.stats.Counter("commands_abandoned").Inc(1)
			return nil, ctx.Err()
		}
	}
}

// enqueue takes a ticket in the session's FIFO chain and returns it with
// the predecessor to wait on, if any.
func (c *controller) enqueue(id uuid.UUID) (turn chan struct{}, prev chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev = c.queues[id]
	turn = make(chan struct{})
	c.queues[id] = turn
	return turn, prev
}

// dequeue drops the session's chain entry if the released turn is still the
// tail, so a drained session leaves nothing behind.
func (c *controller) dequeue(id uuid.UUID, turn chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queues[id] == turn {
		delete(c.queues, id)
	}
}
