package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoCandidates means an archive produced no usable pattern candidates.
	ErrNoCandidates = errors.New("archive contains no pattern files")
	// ErrInvalidArchive means the uploaded bytes are not a readable ZIP.
	ErrInvalidArchive = errors.New("invalid zip archive")
)

// BatchStateError is returned when a lifecycle operation hits a batch that is
// not in the required state. It names the status the batch actually has.
type BatchStateError struct {
	BatchID int64
	Status  string
}

func (e *BatchStateError) Error() string {
	return fmt.Sprintf("batch %d is %s, expected staged", e.BatchID, e.Status)
}

func IsBatchState(err error) bool {
	var bse *BatchStateError
	return errors.As(err, &bse)
}
