// Package registry maps buffers to their upload coordinators.
package registry

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jademcosta/courier/pkg/coordinator"
	"github.com/jademcosta/courier/pkg/limiter"
	"github.com/jademcosta/courier/pkg/logger"
	"github.com/jademcosta/courier/pkg/transfer"
	"github.com/prometheus/client_golang/prometheus"
)

const ComponentName = "registry"

type entry struct {
	coordinator *coordinator.Coordinator
	cancel      context.CancelFunc
}

// Registry creates coordinators on first use and keeps them until they are
// disposed of or the registry is closed.
type Registry struct {
	log                 *slog.Logger
	inboxCapacity       int
	limiterConf         limiter.Config
	uploader            transfer.Uploader
	mirror              coordinator.Mirror
	metricRegistry      *prometheus.Registry
	currentTimeProvider func() time.Time
	metrics             *metricCollector

	mu      sync.Mutex
	entries map[int64]*entry
	closed  bool
}

func New(
	l *slog.Logger,
	inboxCapacity int,
	limiterConf limiter.Config,
	uploader transfer.Uploader,
	mirror coordinator.Mirror,
	metricRegistry *prometheus.Registry,
	currentTimeProvider func() time.Time,
) *Registry {
	return &Registry{
		log:                 l.With(logger.ComponentKey, ComponentName),
		inboxCapacity:       inboxCapacity,
		limiterConf:         limiterConf,
		uploader:            uploader,
		mirror:              mirror,
		metricRegistry:      metricRegistry,
		currentTimeProvider: currentTimeProvider,
		metrics:             newMetricCollector(metricRegistry),
		entries:             make(map[int64]*entry),
	}
}

// ForBuffer returns the coordinator of bufferID, creating and starting it if
// needed. After Close it returns coordinators that are already stopped.
func (r *Registry) ForBuffer(bufferID int64) *coordinator.Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[bufferID]; ok {
		return e.coordinator
	}

	c := coordinator.New(bufferID, r.log, r.inboxCapacity, r.limiterConf, r.uploader, r.mirror,
		r.metricRegistry, r.currentTimeProvider)
	ctx, cancel := context.WithCancel(context.Background())
	if r.closed {
		cancel()
		go c.Run(ctx)
		return c
	}

	go c.Run(ctx)
	r.entries[bufferID] = &entry{coordinator: c, cancel: cancel}
	r.metrics.buffers(len(r.entries))
	r.log.Debug("coordinator created", logger.BufferKey, bufferID)
	return c
}

// Lookup returns the coordinator of bufferID without creating one.
func (r *Registry) Lookup(bufferID int64) (*coordinator.Coordinator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[bufferID]
	if !ok {
		return nil, false
	}
	return e.coordinator, true
}

// Dispose stops the coordinator of bufferID, cancelling its uploads, and
// forgets it. It reports whether there was one.
func (r *Registry) Dispose(bufferID int64) bool {
	r.mu.Lock()
	e, ok := r.entries[bufferID]
	if ok {
		delete(r.entries, bufferID)
		r.metrics.buffers(len(r.entries))
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	e.cancel()
	<-e.coordinator.Done()
	r.log.Info("coordinator disposed", logger.BufferKey, bufferID)
	return true
}

// Buffers lists the buffers that have a coordinator, in ascending order.
func (r *Registry) Buffers() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close stops every coordinator and waits for all of them.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[int64]*entry)
	r.metrics.buffers(0)
	r.mu.Unlock()

	for _, e := range entries {
		e.cancel()
	}
	for _, e := range entries {
		<-e.coordinator.Done()
	}
	r.log.Info("registry closed", "coordinators_stopped", len(entries))
}
