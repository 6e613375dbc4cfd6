package types

import (
	"errors"
	"fmt"
)

// Resource errors.
var (
	// ErrUnsupportedResource is returned for identifiers that match no known
	// collection and variant, or a variant that does not support the operation.
	// It signals a programmer error and is never worth retrying.
	ErrUnsupportedResource = errors.New("unsupported resource")
	ErrInvalidArgs         = errors.New("invalid resource arguments")
	ErrSelectionArgs       = errors.New("selection arguments given without a selection")
)

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// BatchError reports the operation that aborted an ApplyBatch call. Nothing
// from the batch was committed.
type BatchError struct {
	Index int
	Op    Operation
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch operation %d (%s %s): %v", e.Index, e.Op.Kind, e.Op.URI, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
