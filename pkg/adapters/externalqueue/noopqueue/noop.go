package noopqueue

import (
	"context"
	"log/slog"

	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/logger"
)

const TYPE string = "noop"

// Queue drops every message. Used when nobody needs to hear about uploads.
type Queue struct {
	log *slog.Logger
}

func New(l *slog.Logger) *Queue {
	return &Queue{log: l.With(logger.ExternalQueueTypeKey, TYPE)}
}

func (q *Queue) Enqueue(_ context.Context, msg *domain.MessageContext) error {
	q.log.Debug("discarding upload announcement", "path", msg.Path)
	return nil
}

func (q *Queue) Type() string {
	return TYPE
}

func (q *Queue) Name() string {
	return TYPE
}
