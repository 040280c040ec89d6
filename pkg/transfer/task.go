// Package transfer defines the contract between the coordinator and the
// subsystem that actually moves bytes. A Task wraps one upload and reports
// its lifecycle as a sequence of tagged events: Started, zero or more
// Progress, then exactly one of Done or Failure.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jademcosta/courier/pkg/domain"
)

type State int32

const (
	StateCreated State = iota
	StateRunning
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// ProgressFunc is called by an Uploader with the cumulative amount of bytes
// sent so far and the total, or 0 when the total is not known yet.
type ProgressFunc func(transferred, total int64)

// Uploader moves the bytes of one upload. It must honor ctx cancellation and
// return the resulting location on success.
type Uploader interface {
	Upload(ctx context.Context, suri *domain.Suri, progress ProgressFunc) (string, error)
}

type UploaderFunc func(ctx context.Context, suri *domain.Suri, progress ProgressFunc) (string, error)

func (f UploaderFunc) Upload(ctx context.Context, suri *domain.Suri, progress ProgressFunc) (string, error) {
	return f(ctx, suri, progress)
}

type Task struct {
	id        string
	suri      *domain.Suri
	createdAt time.Time

	state           atomic.Int32
	transferred     atomic.Int64
	total           atomic.Int64
	cancelRequested atomic.Bool

	ctx      context.Context
	cancel   context.CancelFunc
	listener Listener
	// emitMu serializes state changes with the events announcing them.
	emitMu   sync.Mutex
}

// Start creates a task for suri and runs it on its own goroutine. The
// listener receives every event of the task, one at a time.
func Start(ctx context.Context, uploader Uploader, suri *domain.Suri, listener Listener) *Task {
	t := newTask(ctx, suri, listener)
	go t.run(uploader)
	return t
}

func newTask(ctx context.Context, suri *domain.Suri, listener Listener) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	return &Task{
		id:        uuid.NewString(),
		suri:      suri,
		createdAt: time.Now(),
		ctx:       taskCtx,
		cancel:    cancel,
		listener:  listener,
	}
}

func (t *Task) ID() string {
	return t.id
}

func (t *Task) Suri() *domain.Suri {
	return t.suri
}

func (t *Task) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Task) State() State {
	return State(t.state.Load())
}

func (t *Task) TransferredBytes() int64 {
	return t.transferred.Load()
}

// TotalBytes is 0 while the size is unknown.
func (t *Task) TotalBytes() int64 {
	return t.total.Load()
}

// Cancel asks the upload to stop. It returns immediately; the task still
// delivers its terminal Failure event once the upload actually stops.
func (t *Task) Cancel() {
	t.cancelRequested.Store(true)
	t.cancel()
}

func (t *Task) String() string {
	return fmt.Sprintf("task(%s %s %s %d/%d)", t.id, t.suri.Key(), t.State(), t.TransferredBytes(), t.TotalBytes())
}

func (t *Task) run(uploader Uploader) {
	defer t.cancel()

	t.transition(StateRunning, Event{Kind: EventStarted})

	if t.ctx.Err() != nil {
		t.fail(fmt.Errorf("before starting: %w", domain.ErrCancelled))
		return
	}

	location, err := uploader.Upload(t.ctx, t.suri, t.reportProgress)
	if err != nil {
		t.fail(err)
		return
	}

	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	if total := t.total.Load(); total > 0 {
		t.advanceTo(total)
	}
	t.state.Store(int32(StateDone))
	t.emitLocked(Event{
		Kind:        EventDone,
		Transferred: t.transferred.Load(),
		Total:       t.total.Load(),
		Location:    location,
	})
}

func (t *Task) fail(err error) {
	finalState := StateFailed
	if t.cancelRequested.Load() || t.ctx.Err() != nil {
		finalState = StateCancelled
		if !errors.Is(err, domain.ErrCancelled) {
			err = fmt.Errorf("%w: %w", domain.ErrCancelled, err)
		}
	}

	t.transition(finalState, Event{Kind: EventFailure, Err: domain.NewTransferError(t.suri.Key(), err)})
}

// reportProgress may be called from any goroutine the uploader uses, even
// after Upload returned. Once the task left RUNNING it is a no-op.
func (t *Task) reportProgress(transferred, total int64) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	if t.State() != StateRunning {
		return
	}

	if total > 0 {
		t.total.CompareAndSwap(0, total)
	}
	t.advanceTo(transferred)
	t.emitLocked(Event{
		Kind:        EventProgress,
		Transferred: t.transferred.Load(),
		Total:       t.total.Load(),
	})
}

// advanceTo keeps the transferred counter monotonic.
func (t *Task) advanceTo(transferred int64) {
	for {
		current := t.transferred.Load()
		if transferred <= current || t.transferred.CompareAndSwap(current, transferred) {
			return
		}
	}
}

// transition changes the state and emits ev as one step, so no progress
// report can slip in between.
func (t *Task) transition(to State, ev Event) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	t.state.Store(int32(to))
	t.emitLocked(ev)
}

// emitLocked must be called with emitMu held.
func (t *Task) emitLocked(ev Event) {
	ev.Task = t
	if t.listener != nil {
		t.listener(ev)
	}
}
