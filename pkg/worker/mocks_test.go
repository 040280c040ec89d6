package worker_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jademcosta/courier/pkg/domain"
)

func constantTimeProvider(fixedTime time.Time) func() time.Time {
	return func() time.Time {
		return fixedTime
	}
}

type storedObject struct {
	key  string
	size int64
	body []byte
}

type mockObjStorage struct {
	mu         sync.Mutex
	calledWith []storedObject
	returning  *domain.UploadResult
	err        error
}

func (objStorage *mockObjStorage) Upload(_ context.Context, workU *domain.WorkUnit) (*domain.UploadResult, error) {
	body, readErr := io.ReadAll(workU.Body)

	objStorage.mu.Lock()
	defer objStorage.mu.Unlock()

	objStorage.calledWith = append(objStorage.calledWith, storedObject{key: workU.Key, size: workU.Size, body: body})
	if readErr != nil {
		return nil, readErr
	}

	if objStorage.err != nil {
		return nil, objStorage.err
	}

	if objStorage.returning != nil {
		result := *objStorage.returning
		return &result, nil
	}
	return &domain.UploadResult{URL: "mock://" + workU.Key, Path: workU.Key}, nil
}

func (objStorage *mockObjStorage) calls() []storedObject {
	objStorage.mu.Lock()
	defer objStorage.mu.Unlock()
	return append([]storedObject(nil), objStorage.calledWith...)
}

type mockExternalQueue struct {
	mu         sync.Mutex
	calledWith []*domain.MessageContext
	err        error
}

func (queue *mockExternalQueue) Enqueue(_ context.Context, data *domain.MessageContext) error {
	queue.mu.Lock()
	defer queue.mu.Unlock()

	queue.calledWith = append(queue.calledWith, data)
	return queue.err
}

func (queue *mockExternalQueue) calls() []*domain.MessageContext {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	return append([]*domain.MessageContext(nil), queue.calledWith...)
}

type progressRecorder struct {
	mu    sync.Mutex
	calls [][2]int64
}

func (rec *progressRecorder) record(transferred, total int64) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.calls = append(rec.calls, [2]int64{transferred, total})
}

func (rec *progressRecorder) all() [][2]int64 {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([][2]int64(nil), rec.calls...)
}
