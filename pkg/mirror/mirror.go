// Package mirror keeps a process-wide view of live uploads, no matter which
// buffer started them or whether anyone is watching.
package mirror

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/jademcosta/courier/pkg/logger"
	"github.com/jademcosta/courier/pkg/transfer"
	"github.com/prometheus/client_golang/prometheus"
)

const ComponentName = "mirror"

type Service struct {
	log     *slog.Logger
	metrics *metricCollector

	mu   sync.Mutex
	live map[*transfer.Task]struct{}
	// idle is closed whenever live is empty.
	idle chan struct{}
}

func New(l *slog.Logger, metricRegistry *prometheus.Registry) *Service {
	idle := make(chan struct{})
	close(idle)

	return &Service{
		log:     l.With(logger.ComponentKey, ComponentName),
		metrics: newMetricCollector(metricRegistry),
		live:    make(map[*transfer.Task]struct{}),
		idle:    idle,
	}
}

func (s *Service) OnUploadStarted(task *transfer.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live[task]; ok {
		return
	}
	if len(s.live) == 0 {
		s.idle = make(chan struct{})
		s.log.Debug("uploads in progress, mirror is busy")
	}
	s.live[task] = struct{}{}
	s.metrics.liveUploads(len(s.live))
}

func (s *Service) OnUploadProgress() {
	s.metrics.incProgress()
}

func (s *Service) OnUploadRemoved(task *transfer.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live[task]; !ok {
		return
	}
	delete(s.live, task)
	s.metrics.liveUploads(len(s.live))
	if len(s.live) == 0 {
		close(s.idle)
		s.log.Debug("no uploads in progress, mirror is idle")
	}
}

// Snapshot lists the live uploads, oldest first.
func (s *Service) Snapshot() []transfer.Snapshot {
	s.mu.Lock()
	tasks := make([]*transfer.Task, 0, len(s.live))
	for task := range s.live {
		tasks = append(tasks, task)
	}
	s.mu.Unlock()

	slices.SortFunc(tasks, func(a, b *transfer.Task) int {
		if c := a.CreatedAt().Compare(b.CreatedAt()); c != 0 {
			return c
		}
		if a.ID() < b.ID() {
			return -1
		}
		if a.ID() > b.ID() {
			return 1
		}
		return 0
	})

	result := make([]transfer.Snapshot, 0, len(tasks))
	for _, task := range tasks {
		result = append(result, task.Snapshot())
	}
	return result
}

// Ratio is the aggregate progress of every live upload, 0 when no total is
// known.
func (s *Service) Ratio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var transferred, total int64
	for task := range s.live {
		transferred += task.TransferredBytes()
		total += task.TotalBytes()
	}
	if total <= 0 {
		return 0
	}
	return min(max(float64(transferred)/float64(total), 0), 1)
}

func (s *Service) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// WaitIdle blocks until no upload is live or ctx is done.
func (s *Service) WaitIdle(ctx context.Context) error {
	for {
		s.mu.Lock()
		if len(s.live) == 0 {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			s.log.Warn("gave up waiting for uploads to finish", "live_uploads", s.LiveCount())
			return ctx.Err()
		}
	}
}
