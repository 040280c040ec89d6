package transfer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []transfer.Event
	done   chan struct{}
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{done: make(chan struct{})}
}

func (r *eventRecorder) listen(ev transfer.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if ev.Kind == transfer.EventDone || ev.Kind == transfer.EventFailure {
		close(r.done)
	}
}

func (r *eventRecorder) wait(t *testing.T) []transfer.Event {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(time.Second):
		require.Fail(t, "task should have reached a terminal event")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transfer.Event(nil), r.events...)
}

func kinds(events []transfer.Event) []transfer.EventKind {
	result := make([]transfer.EventKind, 0, len(events))
	for _, ev := range events {
		result = append(result, ev.Kind)
	}
	return result
}

func TestSuccessfulTaskEmitsStartedProgressAndDone(t *testing.T) {
	suri := domain.NewSuri("/tmp/a.bin", "bucket/a.bin")
	rec := newEventRecorder()

	uploader := transfer.UploaderFunc(func(_ context.Context, _ *domain.Suri, progress transfer.ProgressFunc) (string, error) {
		progress(10, 100)
		progress(60, 100)
		progress(100, 100)
		return "s3://bucket/a.bin", nil
	})

	task := transfer.Start(context.Background(), uploader, suri, rec.listen)
	events := rec.wait(t)

	assert.Equal(t,
		[]transfer.EventKind{transfer.EventStarted, transfer.EventProgress, transfer.EventProgress, transfer.EventProgress, transfer.EventDone},
		kinds(events), "events should follow the task lifecycle")
	assert.Equal(t, "s3://bucket/a.bin", events[len(events)-1].Location)
	for _, ev := range events {
		assert.Same(t, task, ev.Task, "every event should point to its task")
	}

	assert.Equal(t, transfer.StateDone, task.State())
	assert.Equal(t, int64(100), task.TransferredBytes())
	assert.Equal(t, int64(100), task.TotalBytes())
	assert.NotEmpty(t, task.ID())
}

func TestFailedTaskDeliversTransferError(t *testing.T) {
	suri := domain.NewSuri("/tmp/b.bin", "bucket/b.bin")
	rec := newEventRecorder()
	boom := errors.New("connection reset")

	uploader := transfer.UploaderFunc(func(_ context.Context, _ *domain.Suri, _ transfer.ProgressFunc) (string, error) {
		return "", boom
	})

	task := transfer.Start(context.Background(), uploader, suri, rec.listen)
	events := rec.wait(t)

	require.Equal(t, []transfer.EventKind{transfer.EventStarted, transfer.EventFailure}, kinds(events))
	failure := events[1].Err

	var transferErr *domain.TransferError
	require.ErrorAs(t, failure, &transferErr, "failure should be a transfer error")
	assert.Equal(t, suri.Key(), transferErr.Suri)
	assert.ErrorIs(t, failure, boom, "original cause should be preserved")
	assert.False(t, domain.IsCancellation(failure), "a plain failure is not a cancellation")
	assert.Equal(t, transfer.StateFailed, task.State())
}

func TestCancelledTaskEndsCancelledThroughFailurePath(t *testing.T) {
	suri := domain.NewSuri("/tmp/c.bin", "bucket/c.bin")
	rec := newEventRecorder()
	uploading := make(chan struct{})

	uploader := transfer.UploaderFunc(func(ctx context.Context, _ *domain.Suri, progress transfer.ProgressFunc) (string, error) {
		progress(5, 100)
		close(uploading)
		<-ctx.Done()
		return "", ctx.Err()
	})

	task := transfer.Start(context.Background(), uploader, suri, rec.listen)
	<-uploading
	task.Cancel()
	events := rec.wait(t)

	last := events[len(events)-1]
	assert.Equal(t, transfer.EventFailure, last.Kind, "cancellation should end with a failure event")
	assert.ErrorIs(t, last.Err, domain.ErrCancelled)
	assert.ErrorIs(t, last.Err, context.Canceled, "the context error should still be reachable")
	assert.Equal(t, transfer.StateCancelled, task.State())
}

func TestTaskCancelledBeforeRunningNeverCallsTheUploader(t *testing.T) {
	suri := domain.NewSuri("/tmp/d.bin", "bucket/d.bin")
	rec := newEventRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	uploader := transfer.UploaderFunc(func(_ context.Context, _ *domain.Suri, _ transfer.ProgressFunc) (string, error) {
		called = true
		return "somewhere", nil
	})

	transfer.Start(ctx, uploader, suri, rec.listen)
	events := rec.wait(t)

	assert.False(t, called, "uploader should not run with a dead context")
	assert.Equal(t, []transfer.EventKind{transfer.EventStarted, transfer.EventFailure}, kinds(events))
}

func TestTransferredBytesAreMonotonicAndTotalIsFixedOnceKnown(t *testing.T) {
	suri := domain.NewSuri("/tmp/e.bin", "bucket/e.bin")
	rec := newEventRecorder()

	var observed [][2]int64
	uploader := transfer.UploaderFunc(func(_ context.Context, _ *domain.Suri, progress transfer.ProgressFunc) (string, error) {
		progress(10, 0)
		progress(40, 200)
		progress(30, 300)
		progress(80, 200)
		return "loc", nil
	})

	var task *transfer.Task
	var taskMu sync.Mutex
	listener := func(ev transfer.Event) {
		if ev.Kind == transfer.EventProgress {
			taskMu.Lock()
			observed = append(observed, [2]int64{ev.Task.TransferredBytes(), ev.Task.TotalBytes()})
			taskMu.Unlock()
		}
		rec.listen(ev)
	}

	task = transfer.Start(context.Background(), uploader, suri, listener)
	rec.wait(t)

	taskMu.Lock()
	defer taskMu.Unlock()
	assert.Equal(t, [][2]int64{{10, 0}, {40, 200}, {40, 200}, {80, 200}}, observed)
	assert.Equal(t, int64(200), task.TotalBytes())
}

func TestProgressEventsCarryTheirByteCounts(t *testing.T) {
	rec := newEventRecorder()
	uploader := transfer.UploaderFunc(func(_ context.Context, _ *domain.Suri, progress transfer.ProgressFunc) (string, error) {
		progress(0, 0)
		progress(30, 200)
		progress(10, 200)
		progress(200, 200)
		return "loc", nil
	})

	transfer.Start(context.Background(), uploader, domain.NewSuri("/tmp/b", "bucket/b"), rec.listen)
	events := rec.wait(t)

	require.Len(t, events, 6)
	assert.Equal(t, [2]int64{0, 0}, [2]int64{events[1].Transferred, events[1].Total})
	assert.Equal(t, [2]int64{30, 200}, [2]int64{events[2].Transferred, events[2].Total})
	assert.Equal(t, [2]int64{30, 200}, [2]int64{events[3].Transferred, events[3].Total}, "transferred never goes back")
	assert.Equal(t, [2]int64{200, 200}, [2]int64{events[4].Transferred, events[4].Total})
	assert.Equal(t, [2]int64{200, 200}, [2]int64{events[5].Transferred, events[5].Total}, "done carries the final counts")
}

func TestNoProgressAfterTheTerminalEvent(t *testing.T) {
	for i := 0; i < 50; i++ {
		rec := newEventRecorder()
		reporterDone := make(chan struct{})
		stop := make(chan struct{})

		uploader := transfer.UploaderFunc(func(_ context.Context, _ *domain.Suri, progress transfer.ProgressFunc) (string, error) {
			go func() {
				defer close(reporterDone)
				for n := int64(1); ; n++ {
					select {
					case <-stop:
						return
					default:
						progress(n, 1<<40)
					}
				}
			}()
			return "", errors.New("storage went away")
		})

		task := transfer.Start(context.Background(), uploader, domain.NewSuri("/tmp/c", "bucket/c"), rec.listen)
		rec.wait(t)

		late := task.TransferredBytes()
		time.Sleep(time.Millisecond)
		close(stop)
		<-reporterDone

		rec.mu.Lock()
		events := append([]transfer.Event(nil), rec.events...)
		rec.mu.Unlock()

		last := events[len(events)-1]
		require.Equal(t, transfer.EventFailure, last.Kind, "the terminal event must be the last one delivered")
		assert.Equal(t, transfer.StateFailed, task.State())
		assert.Equal(t, late, task.TransferredBytes(), "progress after the terminal event should be ignored")
	}
}

func TestSnapshotCarriesLocationWhenSet(t *testing.T) {
	suri := domain.NewSuri("/tmp/f.bin", "bucket/f.bin")
	rec := newEventRecorder()

	uploader := transfer.UploaderFunc(func(_ context.Context, _ *domain.Suri, progress transfer.ProgressFunc) (string, error) {
		progress(3, 3)
		return "http://storage/f.bin", nil
	})

	task := transfer.Start(context.Background(), uploader, suri, rec.listen)
	rec.wait(t)
	suri.SetLocation("http://storage/f.bin")

	snap := task.Snapshot()
	assert.Equal(t, "/tmp/f.bin", snap.Source)
	assert.Equal(t, "bucket/f.bin", snap.Destination)
	assert.Equal(t, "done", snap.State)
	assert.Equal(t, int64(3), snap.TransferredBytes)
	assert.Equal(t, "http://storage/f.bin", snap.Location)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "created", transfer.StateCreated.String())
	assert.Equal(t, "running", transfer.StateRunning.String())
	assert.Equal(t, "cancelled", transfer.StateCancelled.String())
	assert.True(t, transfer.StateFailed.Terminal())
	assert.False(t, transfer.StateRunning.Terminal())
	assert.Equal(t, "progress", transfer.EventProgress.String())
}
