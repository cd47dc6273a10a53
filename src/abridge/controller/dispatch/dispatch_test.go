package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agda-tools/agda-bridge/src/abridge/entity"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/agdaversion"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/command"
	abrerrors "github.com/agda-tools/agda-bridge/src/abridge/internal/errors"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/wire"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally"
	"go.uber.org/zap"
)

// fakeSupervisor scripts the process side of a dispatch exchange. It
// enforces the same write discipline as the real supervisor: a write while
// busy is rejected.
type fakeSupervisor struct {
	mu      sync.Mutex
	version agdaversion.Version
	busy    bool
	writes  []string
	subs    map[int]chan entity.Event
	nextSub int
	onWrite func(line string)
}

func newFakeSupervisor(version agdaversion.Version) *fakeSupervisor {
	return &fakeSupervisor{
		version: version,
		subs:    make(map[int]chan entity.Event),
	}
}

func (f *fakeSupervisor) Start(ctx context.Context, session *entity.Session) error { return nil }
func (f *fakeSupervisor) Kill(ctx context.Context, id uuid.UUID) error             { return nil }

func (f *fakeSupervisor) Version(id uuid.UUID) (agdaversion.Version, error) {
	return f.version, nil
}

func (f *fakeSupervisor) State(id uuid.UUID) (entity.SessionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return entity.StateBusy, nil
	}
	return entity.StateReady, nil
}

func (f *fakeSupervisor) Write(ctx context.Context, id uuid.UUID, line string) error {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return abrerrors.ErrNotReady
	}
	f.busy = true
	f.writes = append(f.writes, line)
	onWrite := f.onWrite
	f.mu.Unlock()

	if onWrite != nil {
		go onWrite(line)
	}
	return nil
}

func (f *fakeSupervisor) Subscribe(id uuid.UUID) (<-chan entity.Event, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan entity.Event, 64)
	subID := f.nextSub
	f.nextSub++
	f.subs[subID] = ch
	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[subID]; ok {
			delete(f.subs, subID)
			close(ch)
		}
	}
	return ch, cancel, nil
}

func (f *fakeSupervisor) publish(event entity.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event.Kind == entity.EventReady {
		f.busy = false
	}
	for _, ch := range f.subs {
		ch <- event
	}
}

func (f *fakeSupervisor) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeSupervisor) setOnWrite(fn func(string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onWrite = fn
}

func newDispatch(f *fakeSupervisor) Controller {
	return New(Params{
		Logger:     zap.NewNop().Sugar(),
		Stats:      tally.NewTestScope("testing", nil),
		Supervisor: f,
	})
}

func statusResponse() wire.Response {
	return wire.Response{Kind: wire.KindStatus, Status: &wire.Status{Checked: true}}
}

func TestSubmitCollectsWindow(t *testing.T) {
	f := newFakeSupervisor(agdaversion.MustNew(2, 6, 4))
	f.onWrite = func(string) {
		f.publish(entity.Event{Kind: entity.EventResponse, Response: statusResponse()})
		f.publish(entity.Event{Kind: entity.EventResponse, Response: wire.Response{Kind: wire.KindInteractionPoints}})
		f.publish(entity.Event{Kind: entity.EventReady})
	}
	d := newDispatch(f)
	id := uuid.Must(uuid.NewV4())

	responses, err := d.Submit(context.Background(), id, command.Load("/x.agda", nil))
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, wire.KindStatus, responses[0].Kind)
	assert.Equal(t, wire.KindInteractionPoints, responses[1].Kind)
}

func TestDrainedChainLeavesNoEntry(t *testing.T) {
	f := newFakeSupervisor(agdaversion.MustNew(2, 6, 4))
	f.onWrite = func(string) {
		f.publish(entity.Event{Kind: entity.EventResponse, Response: statusResponse()})
		f.publish(entity.Event{Kind: entity.EventReady})
	}
	d := newDispatch(f)
	id := uuid.Must(uuid.NewV4())

	_, err := d.Submit(context.Background(), id, command.Load("/x.agda", nil))
	require.NoError(t, err)

	// The chain entry is cleared once its last turn is released, so ended
	// sessions don't accumulate in the map.
	c := d.(*controller)
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.queues)
}

func TestCapabilityRejectionBeforeWrite(t *testing.T) {
	f := newFakeSupervisor(agdaversion.MustNew(2, 6, 0))
	d := newDispatch(f)
	id := uuid.Must(uuid.NewV4())

	_, err := d.Submit(context.Background(), id, command.AutoAll("/x.agda"))
	require.Error(t, err)
	var capErr *abrerrors.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Zero(t, f.writeCount())
}

func TestSubmitsAreSerialized(t *testing.T) {
	f := newFakeSupervisor(agdaversion.MustNew(2, 6, 4))
	f.onWrite = func(string) {
		time.Sleep(20 * time.Millisecond)
		f.publish(entity.Event{Kind: entity.EventResponse, Response: statusResponse()})
		f.publish(entity.Event{Kind: entity.EventReady})
	}
	d := newDispatch(f)
	id := uuid.Must(uuid.NewV4())

	// The fake rejects overlapping writes, so any failure here means the
	// queue let two commands into the same window.
	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = d.Submit(context.Background(), id, command.Constraints("/x.agda"))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "submit %d", i)
	}
	assert.Equal(t, n, f.writeCount())
}

func TestProcessExitMidWindow(t *testing.T) {
	f := newFakeSupervisor(agdaversion.MustNew(2, 6, 4))
	f.onWrite = func(string) {
		f.publish(entity.Event{Kind: entity.EventResponse, Response: statusResponse()})
		f.publish(entity.Event{Kind: entity.EventExit, ExitCode: 1})
	}
	d := newDispatch(f)
	id := uuid.Must(uuid.NewV4())

	responses, err := d.Submit(context.Background(), id, command.Load("/x.agda", nil))
	require.Error(t, err)
	var exitErr *abrerrors.ProcessExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode)
	// Records collected before the exit are still returned.
	assert.Len(t, responses, 1)
}

func TestAbandonedCommandReleasesQueue(t *testing.T) {
	f := newFakeSupervisor(agdaversion.MustNew(2, 6, 4))
	gate := make(chan struct{})
	f.onWrite = func(string) {
		<-gate
		f.publish(entity.Event{Kind: entity.EventResponse, Response: statusResponse()})
		f.publish(entity.Event{Kind: entity.EventReady})
	}
	d := newDispatch(f)
	id := uuid.Must(uuid.NewV4())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(ctx, id, command.Load("/x.agda", nil))
		done <- err
	}()

	// Wait for the write, abandon the caller, then let the process finish.
	require.Eventually(t, func() bool { return f.writeCount() == 1 }, 5*time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	close(gate)

	// The window still runs to its prompt, after which the session accepts
	// the next command.
	responses, err := d.Submit(context.Background(), id, command.Constraints("/x.agda"))
	require.NoError(t, err)
	assert.Len(t, responses, 1)
}

func TestQueuedCallerCanAbandonWhileWaiting(t *testing.T) {
	f := newFakeSupervisor(agdaversion.MustNew(2, 6, 4))
	gate := make(chan struct{})
	f.onWrite = func(string) {
		<-gate
		f.publish(entity.Event{Kind: entity.EventReady})
	}
	d := newDispatch(f)
	id := uuid.Must(uuid.NewV4())

	first := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background(), id, command.Load("/x.agda", nil))
		first <- err
	}()
	require.Eventually(t, func() bool { return f.writeCount() == 1 }, 5*time.Second, time.Millisecond)

	// Second caller queues behind the first, then gives up.
	ctx, cancel := context.WithCancel(context.Background())
	second := make(chan error, 1)
	go func() {
		_, err := d.Submit(ctx, id, command.Constraints("/x.agda"))
		second <- err
	}()
	cancel()
	require.ErrorIs(t, <-second, context.Canceled)

	// The first command completes and the chain is intact for a third.
	close(gate)
	require.NoError(t, <-first)

	f.setOnWrite(func(string) {
		f.publish(entity.Event{Kind: entity.EventReady})
	})
	_, err := d.Submit(context.Background(), id, command.Constraints("/x.agda"))
	assert.NoError(t, err)
}
