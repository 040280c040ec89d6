package externalqueue

import (
	"context"

	"github.com/jademcosta/courier/pkg/domain"
)

// ExternalQueue announces finished uploads to whoever consumes them.
type ExternalQueue interface {
	Enqueue(ctx context.Context, msg *domain.MessageContext) error
}

type ExtQueueWithMetadata interface {
	ExternalQueue
	Type() string
	Name() string
}
