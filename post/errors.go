package post

import (
	"fmt"
)

// SubmissionKind classifies a create-post failure for retry decisions.
type SubmissionKind int

const (
	// KindNetwork is a transport failure; safe to retry with backoff.
	KindNetwork SubmissionKind = iota
	// KindValidation is a 4xx or a structured error in the response body;
	// never retried automatically.
	KindValidation
	// KindServer is a 5xx; safe to retry with backoff.
	KindServer
)

func (k SubmissionKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// SubmissionError is a failed create-post call. Retry policy is owned by the
// caller: this package never retries on its own.
type SubmissionError struct {
	Kind SubmissionKind
	Err  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit post (%s error): %s", e.Kind, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry the submission.
func (e *SubmissionError) Retryable() bool {
	return e.Kind != KindValidation
}
