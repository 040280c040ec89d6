package coordinator

import (
	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/transfer"
)

// Observer receives the lifecycle of a buffer's uploads. Every method is
// called from the coordinator loop, one at a time, so implementations must
// not block.
type Observer interface {
	OnUploadsStarted()
	OnProgress(ratio float64)
	OnUploadDone(suri *domain.Suri)
	OnUploadFailure(suri *domain.Suri, err error)
	OnFinished()
}

// Mirror follows uploads no matter if an observer is attached. It is called
// from the coordinator loop and may be shared by many coordinators.
type Mirror interface {
	OnUploadStarted(task *transfer.Task)
	OnUploadProgress()
	OnUploadRemoved(task *transfer.Task)
}
