package domain

import (
	"errors"
	"fmt"
)

// ErrCancelled is the cause of every failure produced by a cancellation
// request.
var ErrCancelled = errors.New("upload cancelled")

// TransferError wraps whatever made an upload fail. The coordinator only
// forwards it; callers use errors.Is / errors.As on the wrapped error.
type TransferError struct {
	Suri SuriKey
	Err  error
}

func NewTransferError(suri SuriKey, err error) *TransferError {
	return &TransferError{Suri: suri, Err: err}
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("upload of %s failed: %v", e.Suri, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IsCancellation reports whether err was caused by a cancellation request.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled)
}
