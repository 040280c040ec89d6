package externalqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/jademcosta/courier/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type scriptedQueue struct {
	name string
	err  error
}

func (q *scriptedQueue) Enqueue(_ context.Context, _ *domain.MessageContext) error {
	return q.err
}

func (q *scriptedQueue) Type() string {
	return "scripted"
}

func (q *scriptedQueue) Name() string {
	return q.name
}

func announcements(queueName, result, compression string) float64 {
	return testutil.ToFloat64(announcementsCounter.WithLabelValues("scripted", queueName, result, compression))
}

func TestAnnouncingQueueCountsByOutcome(t *testing.T) {
	inner := &scriptedQueue{name: "outcomes"}
	sut := NewAnnouncingQueue(inner, prometheus.NewRegistry())

	assert.Equal(t, "scripted", sut.Type())
	assert.Equal(t, "outcomes", sut.Name())

	announcedBefore := announcements("outcomes", resultAnnounced, "gzip")
	failedBefore := announcements("outcomes", resultFailed, noCompression)
	cancelledBefore := announcements("outcomes", resultCancelled, noCompression)
	bytesBefore := testutil.ToFloat64(announcedBytesCounter.WithLabelValues("scripted", "outcomes"))

	err := sut.Enqueue(context.Background(), &domain.MessageContext{Path: "a", SizeInBytes: 300, CompressionType: "gzip"})
	assert.NoError(t, err)

	inner.err = errors.New("queue is down")
	err = sut.Enqueue(context.Background(), &domain.MessageContext{Path: "b", SizeInBytes: 50})
	assert.ErrorIs(t, err, inner.err, "errors should reach the caller unchanged")

	inner.err = context.Canceled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, sut.Enqueue(ctx, &domain.MessageContext{Path: "c", SizeInBytes: 70}))

	assert.Equal(t, announcedBefore+1, announcements("outcomes", resultAnnounced, "gzip"))
	assert.Equal(t, failedBefore+1, announcements("outcomes", resultFailed, noCompression),
		"uploads without compression should be labelled as such")
	assert.Equal(t, cancelledBefore+1, announcements("outcomes", resultCancelled, noCompression))
	assert.Equal(t, bytesBefore+300, testutil.ToFloat64(announcedBytesCounter.WithLabelValues("scripted", "outcomes")),
		"only announced uploads should add to the byte count")
}
