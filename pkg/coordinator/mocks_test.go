package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/transfer"
	"github.com/stretchr/testify/require"
)

type uploadOutcome struct {
	location string
	err      error
}

type fakeUpload struct {
	suri     *domain.Suri
	ctx      context.Context
	report   transfer.ProgressFunc
	outcome  chan uploadOutcome
	returned chan struct{}
}

func (u *fakeUpload) progress(transferred, total int64) {
	u.report(transferred, total)
}

func (u *fakeUpload) succeed(location string) {
	u.outcome <- uploadOutcome{location: location}
	<-u.returned
}

func (u *fakeUpload) fail(err error) {
	u.outcome <- uploadOutcome{err: err}
	<-u.returned
}

func (u *fakeUpload) waitCancelled(t *testing.T) {
	t.Helper()
	select {
	case <-u.ctx.Done():
	case <-time.After(time.Second):
		require.Fail(t, "upload should have been cancelled", "suri %s", u.suri.Key())
	}
}

// fakeUploader hands every upload to the test, which then drives its
// progress and outcome.
type fakeUploader struct {
	ignoreCancel bool

	mu       sync.Mutex
	bySource map[string][]*fakeUpload
	taken    map[string]int
	arrived  chan struct{}
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{
		bySource: make(map[string][]*fakeUpload),
		taken:    make(map[string]int),
		arrived:  make(chan struct{}, 1),
	}
}

func (f *fakeUploader) Upload(ctx context.Context, suri *domain.Suri, progress transfer.ProgressFunc) (string, error) {
	u := &fakeUpload{
		suri:     suri,
		ctx:      ctx,
		report:   progress,
		outcome:  make(chan uploadOutcome, 1),
		returned: make(chan struct{}),
	}
	defer close(u.returned)

	f.mu.Lock()
	f.bySource[suri.Source] = append(f.bySource[suri.Source], u)
	f.mu.Unlock()
	select {
	case f.arrived <- struct{}{}:
	default:
	}

	if f.ignoreCancel {
		out := <-u.outcome
		return out.location, out.err
	}

	select {
	case out := <-u.outcome:
		return out.location, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *fakeUploader) await(t *testing.T, source string) *fakeUpload {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		f.mu.Lock()
		list := f.bySource[source]
		if len(list) > f.taken[source] {
			u := list[f.taken[source]]
			f.taken[source]++
			f.mu.Unlock()
			return u
		}
		f.mu.Unlock()

		select {
		case <-f.arrived:
		case <-deadline:
			require.FailNow(t, "upload never reached the uploader", "source %s", source)
		}
	}
}

func (f *fakeUploader) count(source string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bySource[source])
}

type observerCall struct {
	name  string
	ratio float64
	suri  domain.SuriKey
	err   error
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []observerCall
	// When set, OnProgress blocks until it is closed. Used to hold the loop.
	gate chan struct{}
	// Closed the first time OnProgress is entered, if set.
	entered chan struct{}
}

func (o *recordingObserver) record(c observerCall) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, c)
}

func (o *recordingObserver) OnUploadsStarted() {
	o.record(observerCall{name: "started"})
}

func (o *recordingObserver) OnProgress(ratio float64) {
	o.record(observerCall{name: "progress", ratio: ratio})
	if o.entered != nil {
		close(o.entered)
		o.entered = nil
	}
	if o.gate != nil {
		<-o.gate
		o.gate = nil
	}
}

func (o *recordingObserver) OnUploadDone(suri *domain.Suri) {
	o.record(observerCall{name: "done", suri: suri.Key()})
}

func (o *recordingObserver) OnUploadFailure(suri *domain.Suri, err error) {
	o.record(observerCall{name: "failure", suri: suri.Key(), err: err})
}

func (o *recordingObserver) OnFinished() {
	o.record(observerCall{name: "finished"})
}

func (o *recordingObserver) snapshot() []observerCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]observerCall(nil), o.calls...)
}

func (o *recordingObserver) names() []string {
	calls := o.snapshot()
	result := make([]string, 0, len(calls))
	for _, c := range calls {
		result = append(result, c.name)
	}
	return result
}

func (o *recordingObserver) count(name string) int {
	n := 0
	for _, c := range o.snapshot() {
		if c.name == name {
			n++
		}
	}
	return n
}

func (o *recordingObserver) ratios() []float64 {
	var result []float64
	for _, c := range o.snapshot() {
		if c.name == "progress" {
			result = append(result, c.ratio)
		}
	}
	return result
}

type recordingMirror struct {
	mu       sync.Mutex
	started  []domain.SuriKey
	removed  []domain.SuriKey
	progress int
}

func (m *recordingMirror) OnUploadStarted(task *transfer.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, task.Suri().Key())
}

func (m *recordingMirror) OnUploadProgress() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress++
}

func (m *recordingMirror) OnUploadRemoved(task *transfer.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, task.Suri().Key())
}
