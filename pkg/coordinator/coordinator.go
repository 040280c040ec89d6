package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/limiter"
	"github.com/jademcosta/courier/pkg/logger"
	"github.com/jademcosta/courier/pkg/transfer"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ComponentName    = "coordinator"
	MinInboxCapacity = 1
)

// Coordinator owns the uploads of one buffer. All of its state lives in the
// Run loop goroutine; the exported methods only post messages to it.
type Coordinator struct {
	bufferID int64
	log      *slog.Logger
	uploader transfer.Uploader
	mirror   Mirror
	metrics  *metricCollector
	inbox    chan func()
	done     chan struct{}
	runOnce  sync.Once

	// Owned by the loop.
	ctx      context.Context
	limiter  *limiter.ProgressLimiter
	pending  map[domain.SuriKey]*transfer.Task
	active   map[domain.SuriKey]*transfer.Task
	order    []*transfer.Task
	progress map[*transfer.Task]byteCount
	observer Observer
}

// byteCount is what the loop knows about a task from the events it has
// processed so far.
type byteCount struct {
	transferred int64
	total       int64
}

// New creates a coordinator. It does nothing until Run is called. mirror may
// be nil.
func New(
	bufferID int64,
	l *slog.Logger,
	inboxCapacity int,
	limiterConf limiter.Config,
	uploader transfer.Uploader,
	mirror Mirror,
	metricRegistry *prometheus.Registry,
	currentTimeProvider func() time.Time,
) *Coordinator {

	if inboxCapacity < MinInboxCapacity {
		l.Error("coordinator inbox capacity is too small", "capacity", inboxCapacity)
		panic("the coordinator inbox capacity cannot be less than 1")
	}

	return &Coordinator{
		bufferID: bufferID,
		log:      l.With(logger.ComponentKey, ComponentName, logger.BufferKey, bufferID),
		uploader: uploader,
		mirror:   mirror,
		metrics:  newMetricCollector(metricRegistry),
		inbox:    make(chan func(), inboxCapacity),
		done:     make(chan struct{}),
		ctx:      context.Background(),
		limiter:  limiter.New(limiterConf, currentTimeProvider),
		pending:  make(map[domain.SuriKey]*transfer.Task),
		active:   make(map[domain.SuriKey]*transfer.Task),
		progress: make(map[*transfer.Task]byteCount),
	}
}

func (c *Coordinator) BufferID() int64 {
	return c.bufferID
}

// Run should be called in a new goroutine. When ctx is done every upload
// still known to the coordinator is cancelled and the loop exits.
func (c *Coordinator) Run(ctx context.Context) {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		c.log.Warn("coordinator loop already started")
		return
	}
	defer close(c.done)

	c.ctx = ctx
	c.log.Info("starting coordinator loop")
	for {
		select {
		case <-ctx.Done():
			c.log.Debug("coordinator starting shutdown")
			c.shutdown()
			c.log.Info("coordinator shutdown finished")
			return
		case msg := <-c.inbox:
			msg()
		}
	}
}

// Done is closed once the loop has exited.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// StartUploads starts an upload for every identity that is neither running
// nor about to run. Identities already known are ignored.
func (c *Coordinator) StartUploads(suris []*domain.Suri) {
	c.submit(func() { c.startUploads(suris) })
}

// FilterUploads keeps only the uploads whose identity is in suris. Every other
// upload is cancelled and forgotten right away.
func (c *Coordinator) FilterUploads(suris []*domain.Suri) {
	keep := domain.Keys(suris)
	c.submit(func() { c.filterUploads(keep) })
}

// AttachObserver replaces the current observer. If there are active uploads
// the new observer is brought up to date before it sees anything else.
func (c *Coordinator) AttachObserver(obs Observer) {
	c.submit(func() { c.attach(obs) })
}

func (c *Coordinator) DetachObserver() {
	c.submit(func() { c.observer = nil })
}

// ReleaseObserver detaches obs only if it is still the current observer.
func (c *Coordinator) ReleaseObserver(obs Observer) {
	c.submit(func() {
		if c.observer == obs {
			c.observer = nil
		}
	})
}

// CurrentRatio is the aggregate progress of the active uploads, in [0, 1].
func (c *Coordinator) CurrentRatio() float64 {
	return ask(c, c.currentRatio)
}

// ActiveUploads lists the active identities in the order they started.
func (c *Coordinator) ActiveUploads() []*domain.Suri {
	return ask(c, func() []*domain.Suri {
		result := make([]*domain.Suri, 0, len(c.order))
		for _, task := range c.order {
			result = append(result, task.Suri())
		}
		return result
	})
}

// ActiveTasks is like ActiveUploads but returns point-in-time task copies.
func (c *Coordinator) ActiveTasks() []transfer.Snapshot {
	return ask(c, func() []transfer.Snapshot {
		result := make([]transfer.Snapshot, 0, len(c.order))
		for _, task := range c.order {
			snap := task.Snapshot()
			counts := c.progress[task]
			snap.TransferredBytes = counts.transferred
			snap.TotalBytes = counts.total
			result = append(result, snap)
		}
		return result
	})
}

func (c *Coordinator) submit(msg func()) bool {
	select {
	case c.inbox <- msg:
		return true
	case <-c.done:
		return false
	}
}

// ask runs fn on the loop and waits for its result. It returns the zero value
// when the loop is gone.
func ask[T any](c *Coordinator, fn func() T) T {
	var zero T
	reply := make(chan T, 1)
	if !c.submit(func() { reply <- fn() }) {
		return zero
	}

	select {
	case result := <-reply:
		return result
	case <-c.done:
		select {
		case result := <-reply:
			return result
		default:
			return zero
		}
	}
}

func (c *Coordinator) listen(ev transfer.Event) {
	c.submit(func() { c.handle(ev) })
}

func (c *Coordinator) handle(ev transfer.Event) {
	switch ev.Kind {
	case transfer.EventStarted:
		c.onStarted(ev.Task)
	case transfer.EventProgress:
		c.onProgress(ev.Task, byteCount{transferred: ev.Transferred, total: ev.Total})
	case transfer.EventDone:
		c.onDone(ev.Task, ev.Location)
	case transfer.EventFailure:
		c.onFailure(ev.Task, ev.Err)
	}
}

func (c *Coordinator) startUploads(suris []*domain.Suri) {
	for _, suri := range suris {
		key := suri.Key()
		if c.pending[key] != nil || c.active[key] != nil {
			c.log.Debug("upload already known, ignoring start", "suri", key)
			c.metrics.incDuplicateStart()
			continue
		}

		task := transfer.Start(c.ctx, c.uploader, suri, c.listen)
		c.pending[key] = task
		c.log.Debug("upload scheduled", "suri", key, "task_id", task.ID())
	}
}

func (c *Coordinator) filterUploads(keep map[domain.SuriKey]struct{}) {
	for key, task := range c.pending {
		if _, ok := keep[key]; ok {
			continue
		}
		c.cancel(task)
		delete(c.pending, key)
	}

	wasActive := len(c.active) > 0
	remaining := c.order[:0]
	for _, task := range c.order {
		key := task.Suri().Key()
		if _, ok := keep[key]; ok {
			remaining = append(remaining, task)
			continue
		}
		c.cancel(task)
		delete(c.active, key)
		delete(c.progress, task)
		c.metrics.decActive()
		c.notifyMirrorRemoved(task)
	}
	clear(c.order[len(remaining):])
	c.order = remaining

	if wasActive && len(c.active) == 0 {
		c.notifyFinished()
	}
}

func (c *Coordinator) cancel(task *transfer.Task) {
	if task.State().Terminal() {
		return
	}
	c.log.Info("cancelling upload", "task", task.String())
	task.Cancel()
	c.metrics.incFinished(resultCancelled)
}

func (c *Coordinator) attach(obs Observer) {
	c.observer = obs
	if obs == nil || len(c.active) == 0 {
		return
	}
	obs.OnUploadsStarted()
	obs.OnProgress(c.currentRatio())
}

func (c *Coordinator) onStarted(task *transfer.Task) {
	key := task.Suri().Key()
	if c.pending[key] != task {
		c.stray(task, transfer.EventStarted)
		return
	}
	delete(c.pending, key)

	c.active[key] = task
	c.order = append(c.order, task)
	c.progress[task] = byteCount{}
	c.metrics.incStarted()
	c.metrics.incActive()
	c.log.Info("upload started", "task", task.String())

	if c.mirror != nil {
		c.mirror.OnUploadStarted(task)
	}
	if len(c.active) == 1 {
		c.limiter.Reset()
		if c.observer != nil {
			c.observer.OnUploadsStarted()
		}
	}
}

func (c *Coordinator) onProgress(task *transfer.Task, counts byteCount) {
	if !c.isActive(task) {
		c.stray(task, transfer.EventProgress)
		return
	}
	c.progress[task] = counts

	ratio := c.currentRatio()
	if !c.limiter.Step(ratio) {
		c.metrics.incProgressSkipped()
		return
	}

	c.metrics.incProgressEmitted()
	c.log.Debug("upload progress", "ratio", ratio, "task", task.String())
	if c.mirror != nil {
		c.mirror.OnUploadProgress()
	}
	if c.observer != nil {
		c.observer.OnProgress(ratio)
	}
}

func (c *Coordinator) onDone(task *transfer.Task, location string) {
	if !c.isActive(task) {
		c.stray(task, transfer.EventDone)
		return
	}

	suri := task.Suri()
	if !suri.SetLocation(location) {
		c.log.Warn("upload location was already set, keeping the first one", "task", task.String())
	}
	c.remove(task)
	c.metrics.incFinished(resultDone)
	c.log.Info("upload done", "task", task.String(), "location", location)

	if c.observer != nil {
		c.observer.OnUploadDone(suri)
	}
	if len(c.active) == 0 {
		c.notifyFinished()
	}
}

func (c *Coordinator) onFailure(task *transfer.Task, err error) {
	if !c.isActive(task) {
		c.stray(task, transfer.EventFailure)
		return
	}

	c.remove(task)
	if domain.IsCancellation(err) {
		c.metrics.incFinished(resultCancelled)
	} else {
		c.metrics.incFinished(resultFailed)
	}
	c.log.Info("upload failure", "task", task.String(), "error", err)

	if c.observer != nil {
		c.observer.OnUploadFailure(task.Suri(), err)
	}
	if len(c.active) == 0 {
		c.notifyFinished()
	}
}

func (c *Coordinator) isActive(task *transfer.Task) bool {
	return c.active[task.Suri().Key()] == task
}

func (c *Coordinator) remove(task *transfer.Task) {
	delete(c.active, task.Suri().Key())
	delete(c.progress, task)
	for i, t := range c.order {
		if t == task {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.metrics.decActive()
	c.notifyMirrorRemoved(task)
}

func (c *Coordinator) stray(task *transfer.Task, kind transfer.EventKind) {
	c.metrics.incStray()
	c.log.Warn("ignoring event from an upload no longer tracked", "event", kind.String(), "task", task.String())
}

func (c *Coordinator) notifyMirrorRemoved(task *transfer.Task) {
	if c.mirror != nil {
		c.mirror.OnUploadRemoved(task)
	}
}

func (c *Coordinator) notifyFinished() {
	c.log.Info("all uploads finished")
	if c.observer != nil {
		c.observer.OnFinished()
	}
}

func (c *Coordinator) currentRatio() float64 {
	var transferred, total int64
	for _, task := range c.order {
		counts := c.progress[task]
		transferred += counts.transferred
		total += counts.total
	}

	if total <= 0 {
		return 0
	}

	ratio := float64(transferred) / float64(total)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

func (c *Coordinator) shutdown() {
	for key, task := range c.pending {
		c.cancel(task)
		delete(c.pending, key)
	}

	for _, task := range c.order {
		c.cancel(task)
		c.metrics.decActive()
		c.notifyMirrorRemoved(task)
	}
	clear(c.active)
	clear(c.progress)
	c.order = nil
	c.observer = nil
}
