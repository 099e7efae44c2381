// Package session owns the lifecycle of one remote multipart upload for one
// file: initiate, upload numbered parts in order, then complete or abort.
package session

import (
	"context"
	"fmt"

	"github.com/bitrise-io/go-utils/v2/log"
)

// Status is the lifecycle state of one multipart session.
type Status int

const (
	StatusInitiated Status = iota
	StatusPartsInFlight
	StatusCompleted
	StatusAborted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInitiated:
		return "initiated"
	case StatusPartsInFlight:
		return "parts-in-flight"
	case StatusCompleted:
		return "completed"
	case StatusAborted:
		return "aborted"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// InitError means the storage backend rejected session creation.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initiate multipart session: %s", e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// PartUploadError means one part failed to upload. It carries the part
// number so the caller can retry exactly that part.
type PartUploadError struct {
	PartNumber int32
	Err        error
}

func (e *PartUploadError) Error() string {
	return fmt.Sprintf("upload part %d: %s", e.PartNumber, e.Err)
}

func (e *PartUploadError) Unwrap() error { return e.Err }

// CompleteError means finalization failed: the part list was not contiguous,
// a token was missing, or the backend rejected the assembly.
type CompleteError struct {
	Err error
}

func (e *CompleteError) Error() string {
	return fmt.Sprintf("complete multipart session: %s", e.Err)
}

func (e *CompleteError) Unwrap() error { return e.Err }

// Session is one remote multipart upload in progress. It is owned by a
// single goroutine for its lifetime and must not be reused after Complete
// or Abort.
type Session struct {
	transport Transport
	logger    log.Logger

	bucket      string
	key         string
	contentType string
	uploadID    string

	size      int64
	sentBytes int64
	parts     []CompletedPart
	status    Status
}

// Initiate opens a new multipart session for one file of the given size.
func Initiate(ctx context.Context, transport Transport, bucket, key, contentType string, size int64, logger log.Logger) (*Session, error) {
	uploadID, err := transport.Initiate(ctx, bucket, key, contentType)
	if err != nil {
		return nil, &InitError{Err: err}
	}

	logger.Debugf("Initiated multipart session %s for %s", uploadID, key)

	return &Session{
		transport:   transport,
		logger:      logger,
		bucket:      bucket,
		key:         key,
		contentType: contentType,
		uploadID:    uploadID,
		size:        size,
		status:      StatusInitiated,
	}, nil
}

// UploadID returns the opaque session token issued by the storage backend.
func (s *Session) UploadID() string {
	return s.uploadID
}

// Key returns the target object key.
func (s *Session) Key() string {
	return s.key
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	return s.status
}

// UploadPart uploads one part and records its integrity token. Parts must
// arrive in strict 1-based order; re-sending the current part number (a
// retry after a transport failure) replaces its token.
func (s *Session) UploadPart(ctx context.Context, partNumber int32, body []byte) (string, error) {
	if s.status != StatusInitiated && s.status != StatusPartsInFlight {
		return "", &PartUploadError{PartNumber: partNumber, Err: fmt.Errorf("session is %s", s.status)}
	}

	next := int32(len(s.parts) + 1)
	isRetry := partNumber == next-1 && next > 1
	if partNumber != next && !isRetry {
		return "", &PartUploadError{PartNumber: partNumber, Err: fmt.Errorf("expected part %d", next)}
	}
	if len(body) == 0 {
		return "", &PartUploadError{PartNumber: partNumber, Err: fmt.Errorf("empty part body")}
	}

	etag, err := s.transport.UploadPart(ctx, s.bucket, s.key, s.uploadID, partNumber, body)
	if err != nil {
		s.status = StatusFailed
		return "", &PartUploadError{PartNumber: partNumber, Err: err}
	}

	if isRetry {
		s.sentBytes -= int64(len(body))
		s.parts[partNumber-1] = CompletedPart{Number: partNumber, ETag: etag}
	} else {
		s.parts = append(s.parts, CompletedPart{Number: partNumber, ETag: etag})
	}
	s.sentBytes += int64(len(body))
	s.status = StatusPartsInFlight

	return etag, nil
}

// Retryable resets a failed session back to parts-in-flight so the caller
// can re-send the failed part. Only valid after a part upload failure.
func (s *Session) Retryable() {
	if s.status == StatusFailed {
		if len(s.parts) == 0 {
			s.status = StatusInitiated
		} else {
			s.status = StatusPartsInFlight
		}
	}
}

// Complete finalizes the session. It succeeds only when every byte of the
// source file is covered by exactly one acknowledged part.
func (s *Session) Complete(ctx context.Context) (Object, error) {
	if s.status != StatusPartsInFlight {
		return Object{}, &CompleteError{Err: fmt.Errorf("session is %s, not parts-in-flight", s.status)}
	}
	if s.sentBytes != s.size {
		s.status = StatusFailed
		return Object{}, &CompleteError{Err: fmt.Errorf("acknowledged %d bytes of %d", s.sentBytes, s.size)}
	}
	for i, part := range s.parts {
		if part.Number != int32(i+1) {
			s.status = StatusFailed
			return Object{}, &CompleteError{Err: fmt.Errorf("non-contiguous part list at index %d", i)}
		}
		if part.ETag == "" {
			s.status = StatusFailed
			return Object{}, &CompleteError{Err: fmt.Errorf("missing integrity token for part %d", part.Number)}
		}
	}

	object, err := s.transport.Complete(ctx, s.bucket, s.key, s.uploadID, s.parts)
	if err != nil {
		s.status = StatusFailed
		return Object{}, &CompleteError{Err: err}
	}

	s.status = StatusCompleted
	s.logger.Debugf("Completed multipart session %s (%d parts)", s.uploadID, len(s.parts))

	return object, nil
}

// Abort discards the session. Best effort: failures are logged, not
// propagated, because abort runs on cleanup paths that must not themselves
// fail. Completed sessions are left untouched.
func (s *Session) Abort(ctx context.Context) {
	if s.status == StatusCompleted || s.status == StatusAborted {
		return
	}

	if err := s.transport.Abort(ctx, s.bucket, s.key, s.uploadID); err != nil {
		s.logger.Warnf("Failed to abort multipart session %s: %s", s.uploadID, err)
		return
	}

	s.status = StatusAborted
	s.logger.Debugf("Aborted multipart session %s", s.uploadID)
}
