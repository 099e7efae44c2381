package upload

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when a batch run is stopped through its context.
// Distinct from BatchError: the caller chose to stop, nothing went wrong.
var ErrCancelled = errors.New("upload batch cancelled")

// ErrEmptyBatch is returned when a run is requested with no media items.
// No BatchError is produced since there is no item to point at.
var ErrEmptyBatch = errors.New("upload batch contains no media items")

// BatchError is the terminal failure of a batch run, naming the media item
// (0-based index into the input list) whose upload failed. The batch has no
// partial success: preceding items' objects are not surfaced.
type BatchError struct {
	ItemIndex int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("upload batch failed at item %d: %s", e.ItemIndex, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
