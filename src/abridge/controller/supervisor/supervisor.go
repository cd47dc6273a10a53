// Package supervisor owns the lifecycle of agda processes. It probes the
// binary, spawns it in interaction mode, decodes its stdout into events,
// and tears it down when the session ends.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/agda-tools/agda-bridge/src/abridge/entity"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/agdaversion"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/clock"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/command"
	abrerrors "github.com/agda-tools/agda-bridge/src/abridge/internal/errors"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/executor"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/wire"
	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Module provides this controller to an Fx application.
var Module = fx.Provide(New)

const (
	_configKeyStartupTimeout = "agda.startupTimeout"
	_configKeyKillGrace      = "agda.killGrace"

	_defaultStartupTimeout = 10 * time.Second
	_defaultKillGrace      = 5 * time.Second

	_interactionFlag = "--interaction-json"
	_versionFlag     = "--version"

	_stderrTailLimit = 4096
	_readChunkSize   = 8192
)

// Controller manages one supervised agda process per session.
type Controller interface {
	// Start probes the binary, launches it in interaction mode, and blocks
	// until the first ready prompt. On success the session's Version, State
	// and PID fields are populated.
	Start(ctx context.Context, session *entity.Session) error
	// Write sends one already-encoded command line to the process. The
	// session must be ready; a successful write moves it to busy.
	Write(ctx context.Context, id uuid.UUID, line string) error
	// Subscribe registers for the process's event stream. The returned
	// cancel func must be called to release the subscription.
	Subscribe(id uuid.UUID) (<-chan entity.Event, func(), error)
	// Version reports the version detected at startup.
	Version(id uuid.UUID) (agdaversion.Version, error)
	// State reports the session's current lifecycle state.
	State(id uuid.UUID) (entity.SessionState, error)
	// Kill terminates the process, escalating from SIGTERM to SIGKILL
	// after the configured grace period.
	Kill(ctx context.Context, id uuid.UUID) error
}

// Params are inbound parameters to initialize a new controller.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
	Config    config.Provider
	Executor  executor.Executor
	Clock     clock.Clock
	Stats     tally.Scope
}

type controller struct {
	logger   *zap.SugaredLogger
	executor executor.Executor
	clock    clock.Clock
	stats    tally.Scope

	startupTimeout time.Duration
	killGrace      time.Duration

	mu        sync.Mutex
	processes map[uuid.UUID]*process
}

// process is the runtime record for one supervised agda instance.
type process struct {
	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	state entity.SessionState

	version agdaversion.Version

	stderrTail []byte
	watcher    *fsnotify.Watcher

	subscribers map[int]*subscriber
	nextSubID   int

	firstReady chan struct{}
	readyOnce  sync.Once
	done       chan struct{}
}

// New constructs a new supervisor controller.
func New(p Params) (Controller, error) {
	c := &controller{
		logger:         p.Logger,
		executor:       p.Executor,
		clock:          p.Clock,
		stats:          p.Stats,
		startupTimeout: _defaultStartupTimeout,
		killGrace:      _defaultKillGrace,
		processes:      make(map[uuid.UUID]*process),
	}

	if err := populateDuration(p.Config, _configKeyStartupTimeout, &c.startupTimeout); err != nil {
		return nil, err
	}
	if err := populateDuration(p.Config, _configKeyKillGrace, &c.killGrace); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: c.stopAll,
	})

	return c, nil
}

// populateDuration reads a duration config value expressed as a string,
// e.g. "10s". Absent keys leave the default in place.
func populateDuration(cfg config.Provider, key string, out *time.Duration) error {
	v := cfg.Get(key)
	if !v.HasValue() {
		return nil
	}
	var raw string
	if err := v.Populate(&raw); err != nil {
		return fmt.Errorf("reading %q: %w", key, err)
	}
	if raw == "" {
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", key, err)
	}
	*out = parsed
	return nil
}

// Start probes the binary's version, rejects anything below the supported
// minimum, then spawns the interaction process and waits for its first
// ready prompt.
func (c *controller) Start(ctx context.Context, session *entity.Session) error {
	version, err := c.probeVersion(session.AgdaPath)
	if err != nil {
		return err
	}

	proc := &process{
		state:       entity.StateStarting,
		version:     version,
		subscribers: make(map[int]*subscriber),
		firstReady:  make(chan struct{}),
		done:        make(chan struct{}),
	}

	c.mu.Lock()
	if _, exists := c.processes[session.UUID]; exists {
		c.mu.Unlock()
		return fmt.Errorf("session %s already has a process", session.UUID)
	}
	c.processes[session.UUID] = proc
	c.mu.Unlock()

	if err := c.spawn(session, proc); err != nil {
		c.remove(session.UUID)
		return err
	}

	select {
	case <-proc.firstReady:
	case <-proc.done:
		c.remove(session.UUID)
		return &abrerrors.StartupError{
			Reason: "process exited before becoming ready",
			Stderr: string(proc.tail()),
		}
	case <-c.clock.After(c.startupTimeout):
		c.terminate(proc)
		c.remove(session.UUID)
		return &abrerrors.StartupError{
			Reason: fmt.Sprintf("no ready prompt within %s", c.startupTimeout),
			Stderr: string(proc.tail()),
		}
	case <-ctx.Done():
		c.terminate(proc)
		c.remove(session.UUID)
		return ctx.Err()
	}

	session.Version = version
	session.State = entity.StateReady
	session.PID = proc.cmd.Process.Pid
	c.stats.Counter("agda_process_started").Inc(1)
	c.logger.Infow("agda process ready",
		"session", session.UUID,
		"version", version.String(),
		"pid", session.PID,
	)
	return nil
}

// probeVersion runs the binary once with the version flag and parses its
// self report.
func (c *controller) probeVersion(agdaPath string) (agdaversion.Version, error) {
	stdout, stderr, _, err := c.executor.Run(exec.Command(agdaPath, _versionFlag))
	if err != nil {
		return agdaversion.Version{}, &abrerrors.StartupError{
			Reason: "version probe failed",
			Stderr: stderr,
			Err:    err,
		}
	}

	version, err := agdaversion.ParseSelfReport(stdout)
	if err != nil {
		return agdaversion.Version{}, &abrerrors.StartupError{
			Reason: "unparseable version report",
			Stderr: stdout,
			Err:    err,
		}
	}

	if version.LT(command.MinimumSupported) {
		return agdaversion.Version{}, &abrerrors.VersionBelowMinimumError{
			Detected: version,
			Minimum:  command.MinimumSupported,
		}
	}
	return version, nil
}

func (c *controller) spawn(session *entity.Session, proc *process) error {
	args := append([]string{_interactionFlag}, session.AgdaArgs...)
	cmd := exec.Command(session.AgdaPath, args...)
	cmd.Dir = session.WorkspaceRoot

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := c.executor.Start(cmd); err != nil {
		return fmt.Errorf("starting %s: %w", session.AgdaPath, err)
	}
	proc.cmd = cmd
	proc.stdin = stdin

	if watcher, err := c.watchBinary(session.AgdaPath, proc); err != nil {
		c.logger.Warnw("binary watch unavailable", "path", session.AgdaPath, "error", err)
	} else {
		proc.watcher = watcher
	}

	go c.readStdout(session.UUID, proc, stdout)
	go proc.collectStderr(stderr)
	go c.awaitExit(session.UUID, proc)

	return nil
}

// readStdout pumps the process's stdout through the wire decoder and fans
// decoded events out to subscribers.
func (c *controller) readStdout(id uuid.UUID, proc *process, stdout io.Reader) {
	decoder := wire.NewDecoder(wire.Handlers{
		HandleResponse: func(resp wire.Response) {
			proc.publish(entity.Event{Kind: entity.EventResponse, Response: wire.Normalize(resp)})
		},
		HandleReady: func() {
			proc.readyOnce.Do(func() { close(proc.firstReady) })
			proc.setState(entity.StateReady)
			proc.publish(entity.Event{Kind: entity.EventReady})
		},
		HandleDecodeError: func(excerpt string, err error) {
			c.logger.Warnw("undecodable output line",
				"session", id,
				"excerpt", excerpt,
				"error", err,
			)
			c.stats.Counter("agda_decode_error").Inc(1)
		},
	})

	buf := make([]byte, _readChunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			decoder.Feed(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// awaitExit reaps the process and publishes its exit observation.
func (c *controller) awaitExit(id uuid.UUID, proc *process) {
	err := proc.cmd.Wait()
	proc.setState(entity.StateDead)
	if proc.watcher != nil {
		proc.watcher.Close()
	}

	event := entity.Event{Kind: entity.EventExit}
	state := proc.cmd.ProcessState
	if state != nil {
		event.ExitCode = state.ExitCode()
		if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			event.Signal = ws.Signal().String()
		}
	}
	if err != nil && event.Signal == "" && event.ExitCode == 0 {
		event.Err = err
	}

	c.logger.Infow("agda process exited",
		"session", id,
		"exitCode", event.ExitCode,
		"signal", event.Signal,
	)
	c.stats.Counter("agda_process_exited").Inc(1)
	proc.publish(event)
	close(proc.done)
}

// watchBinary watches the executable's parent directory so that replacing
// the binary (a common side effect of toolchain upgrades) surfaces as an
// event instead of a mysterious mid-session behavior change.
func (c *controller) watchBinary(agdaPath string, proc *process) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(agdaPath)); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != agdaPath {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					proc.publish(entity.Event{Kind: entity.EventBinaryChanged})
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher, nil
}

// Write sends one command line. Only a ready process accepts writes; the
// caller is expected to serialize commands and wait for the ready event.
func (c *controller) Write(ctx context.Context, id uuid.UUID, line string) error {
	proc, err := c.get(id)
	if err != nil {
		return err
	}

	proc.mu.Lock()
	defer proc.mu.Unlock()

	switch proc.state {
	case entity.StateReady:
	case entity.StateDead, entity.StateExiting:
		return abrerrors.ErrSessionTerminated
	default:
		return abrerrors.ErrNotReady
	}

	if _, err := io.WriteString(proc.stdin, line+"\n"); err != nil {
		return fmt.Errorf("writing command: %w", err)
	}
	proc.state = entity.StateBusy
	return nil
}

// Subscribe registers an event channel for the given session. Delivery is
// lossless: command windows can run to thousands of records, and dropping
// any of them (or the ready edge that closes the window) would corrupt the
// temporal attribution the dispatcher depends on.
func (c *controller) Subscribe(id uuid.UUID) (<-chan entity.Event, func(), error) {
	proc, err := c.get(id)
	if err != nil {
		return nil, nil, err
	}

	proc.mu.Lock()
	defer proc.mu.Unlock()

	sub := newSubscriber()
	subID := proc.nextSubID
	proc.nextSubID++
	proc.subscribers[subID] = sub

	cancel := func() {
		proc.mu.Lock()
		delete(proc.subscribers, subID)
		proc.mu.Unlock()
		sub.close()
	}
	return sub.out, cancel, nil
}

// Version reports the version detected when the process started.
func (c *controller) Version(id uuid.UUID) (agdaversion.Version, error) {
	proc, err := c.get(id)
	if err != nil {
		return agdaversion.Version{}, err
	}
	return proc.version, nil
}

// State reports the process's current lifecycle state.
func (c *controller) State(id uuid.UUID) (entity.SessionState, error) {
	proc, err := c.get(id)
	if err != nil {
		return entity.StateDead, err
	}
	proc.mu.Lock()
	defer proc.mu.Unlock()
	return proc.state, nil
}

// Kill tears the process down and forgets the session.
func (c *controller) Kill(ctx context.Context, id uuid.UUID) error {
	proc, err := c.get(id)
	if err != nil {
		return err
	}

	proc.setState(entity.StateExiting)
	err = c.terminate(proc)
	c.remove(id)
	return err
}

// terminate escalates from SIGTERM to SIGKILL after the grace period.
func (c *controller) terminate(proc *process) error {
	if proc.cmd == nil || proc.cmd.Process == nil {
		return nil
	}

	var errs error
	if err := proc.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		errs = multierr.Append(errs, err)
	}

	select {
	case <-proc.done:
		return errs
	case <-c.clock.After(c.killGrace):
	}

	if err := proc.cmd.Process.Kill(); err != nil {
		errs = multierr.Append(errs, err)
	}
	<-proc.done
	return errs
}

func (c *controller) stopAll(ctx context.Context) error {
	c.mu.Lock()
	ids := make([]uuid.UUID, 0, len(c.processes))
	for id := range c.processes {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	var errs error
	for _, id := range ids {
		if err := c.Kill(ctx, id); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *controller) get(id uuid.UUID) (*process, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	proc, ok := c.processes[id]
	if !ok {
		return nil, &abrerrors.UUIDNotFoundError{UUID: id}
	}
	return proc, nil
}

func (c *controller) remove(id uuid.UUID) {
	c.mu.Lock()
	delete(c.processes, id)
	c.mu.Unlock()
}

func (p *process) setState(state entity.SessionState) {
	p.mu.Lock()
	// Dead is terminal; a late ready prompt must not resurrect the session.
	if p.state != entity.StateDead {
		p.state = state
	}
	p.mu.Unlock()
}

// publish fans an event out to all subscribers. Pushing only appends to
// each subscriber's pending queue, so a slow consumer delays itself without
// stalling the stdout pump or losing events.
func (p *process) publish(event entity.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, sub := range p.subscribers {
		sub.push(event)
	}
}

// subscriber carries events from the pump to one consumer. The pending
// queue is unbounded; a dedicated goroutine feeds the outbound channel at
// whatever pace the consumer sustains.
type subscriber struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []entity.Event
	closed  bool

	out  chan entity.Event
	done chan struct{}
}

func newSubscriber() *subscriber {
	s := &subscriber{
		out:  make(chan entity.Event),
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.drain()
	return s
}

func (s *subscriber) push(event entity.Event) {
	s.mu.Lock()
	if !s.closed {
		s.pending = append(s.pending, event)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

// close is idempotent. Events still pending are discarded; the consumer
// has walked away.
func (s *subscriber) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

func (s *subscriber) drain() {
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			close(s.out)
			return
		}
		event := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		select {
		case s.out <- event:
		case <-s.done:
			close(s.out)
			return
		}
	}
}

// collectStderr keeps the tail of stderr for failure diagnostics.
func (p *process) collectStderr(stderr io.Reader) {
	buf := make([]byte, 1024)
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			p.mu.Lock()
			p.stderrTail = append(p.stderrTail, buf[:n]...)
			if len(p.stderrTail) > _stderrTailLimit {
				p.stderrTail = p.stderrTail[len(p.stderrTail)-_stderrTailLimit:]
			}
			p.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (p *process) tail() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, len(p.stderrTail))
	copy(out, p.stderrTail)
	return out
}
