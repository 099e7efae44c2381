// Package upload drives the end-to-end upload of a create-post media batch:
// one multipart session per file, sequential files, sequential parts,
// bounded per-part retries and monotonic progress reporting.
package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"

	"github.com/keshan-spec/drivelife-app-core/media"
	"github.com/keshan-spec/drivelife-app-core/upload/chunk"
	"github.com/keshan-spec/drivelife-app-core/upload/session"
)

// Orchestrator uploads media batches. Safe to reuse across batches; all
// per-batch state lives on the stack of one Run call.
type Orchestrator struct {
	transport session.Transport
	config    Config
	logger    log.Logger
	tracker   batchTracker
}

// NewOrchestrator wires an orchestrator to a storage transport.
func NewOrchestrator(transport session.Transport, config Config, envRepo env.Repository, logger log.Logger) *Orchestrator {
	return &Orchestrator{
		transport: transport,
		config:    config,
		logger:    logger,
		tracker:   newBatchTracker(envRepo, logger),
	}
}

// Run uploads every item in selection order and returns the manifest, or the
// batch's single terminal error. Files are uploaded sequentially and so are
// the parts within a file: part N+1 is not read from disk before part N is
// acknowledged, so only one chunk buffer is resident at a time.
//
// Any failure fails the whole batch; there is no partial success. On failure
// or cancellation the current file's session is aborted. Finalized objects of
// preceding files are not cleaned up (see DESIGN.md).
func (o *Orchestrator) Run(ctx context.Context, userID string, items []media.Item, onProgress ProgressFunc) ([]ManifestEntry, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}

	defer o.tracker.wait()

	var batchTotal int64
	for i, item := range items {
		if err := o.config.Limits.Validate(item); err != nil {
			return nil, &BatchError{ItemIndex: i, Err: err}
		}
		batchTotal += item.Size
	}

	o.logger.Infof("Uploading %d media files (%s total)", len(items), units.HumanSize(float64(batchTotal)))
	startTime := time.Now()

	manifest := make([]ManifestEntry, 0, len(items))
	var batchSent int64

	for i, item := range items {
		if ctx.Err() != nil {
			o.tracker.logBatchCancelled(batchSent)
			return nil, ErrCancelled
		}

		item := item
		i := i
		report := func(itemSent int64) {
			if onProgress == nil {
				return
			}
			onProgress(Progress{
				ItemIndex:       i,
				TotalItems:      len(items),
				ItemBytesSent:   itemSent,
				ItemBytesTotal:  item.Size,
				BatchBytesSent:  batchSent + itemSent,
				BatchBytesTotal: batchTotal,
			})
		}

		object, err := o.uploadItem(ctx, userID, item, report)
		if err != nil {
			if ctx.Err() != nil {
				o.tracker.logBatchCancelled(batchSent)
				return nil, ErrCancelled
			}
			o.tracker.logBatchFailed(i, err.Error())
			return nil, &BatchError{ItemIndex: i, Err: err}
		}

		batchSent += item.Size
		manifest = append(manifest, ManifestEntry{
			URL:      object.URL,
			Key:      object.Key,
			MimeType: item.MimeType,
			Type:     item.Type(),
			Width:    item.Width,
			Height:   item.Height,
		})
	}

	o.tracker.logBatchUploaded(time.Since(startTime), batchTotal, len(items))
	o.logger.Donef("Uploaded %d media files in %s", len(items), time.Since(startTime).Round(time.Second))

	return manifest, nil
}

func (o *Orchestrator) uploadItem(ctx context.Context, userID string, item media.Item, report func(int64)) (session.Object, error) {
	reader, err := chunk.Open(item.URI)
	if err != nil {
		return session.Object{}, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			o.logger.Warnf("Failed to close %s: %s", item.URI, err)
		}
	}()

	if reader.Size() != item.Size {
		return session.Object{}, fmt.Errorf("file %s changed size: declared %d, found %d", item.URI, item.Size, reader.Size())
	}

	key := media.ObjectKey(userID, item.FileName())

	// A file that fits inside one stride is uploaded with a plain put; a
	// one-part multipart session would be pure overhead.
	if item.Size <= o.config.ChunkSize {
		return o.putSmallItem(ctx, key, item, reader, report)
	}

	parts, err := chunk.Layout(item.Size, o.config.ChunkSize)
	if err != nil {
		return session.Object{}, err
	}

	sess, err := session.Initiate(ctx, o.transport, o.config.Bucket, key, item.MimeType, item.Size, o.logger)
	if err != nil {
		return session.Object{}, err
	}

	var itemSent int64
	for _, part := range parts {
		if ctx.Err() != nil {
			o.abortSession(sess)
			return session.Object{}, ErrCancelled
		}

		body, err := reader.ReadAt(part.Offset, part.Length)
		if err != nil {
			o.abortSession(sess)
			return session.Object{}, err
		}
		if int64(len(body)) != part.Length {
			o.abortSession(sess)
			return session.Object{}, fmt.Errorf("short read for part %d: want %d bytes, got %d", part.Number, part.Length, len(body))
		}

		if err := o.uploadPartWithRetry(ctx, sess, part.Number, body); err != nil {
			o.abortSession(sess)
			return session.Object{}, err
		}

		itemSent += part.Length
		report(itemSent)
	}

	if ctx.Err() != nil {
		o.abortSession(sess)
		return session.Object{}, ErrCancelled
	}

	object, err := sess.Complete(ctx)
	if err != nil {
		o.abortSession(sess)
		return session.Object{}, err
	}

	return object, nil
}

func (o *Orchestrator) putSmallItem(ctx context.Context, key string, item media.Item, reader *chunk.Reader, report func(int64)) (session.Object, error) {
	body, err := reader.ReadAt(0, item.Size)
	if err != nil {
		return session.Object{}, err
	}

	var object session.Object
	err = retry.Times(o.config.PartRetries).Wait(o.config.PartRetryWait).TryWithAbort(func(attempt uint) (error, bool) {
		if err := ctx.Err(); err != nil {
			return err, true
		}
		if attempt > 0 {
			o.logger.Warnf("Retrying upload of %s (attempt %d)", item.FileName(), attempt+1)
		}

		putCtx, cancel := context.WithTimeout(ctx, o.config.PartTimeout)
		defer cancel()

		var putErr error
		object, putErr = o.transport.Put(putCtx, o.config.Bucket, key, item.MimeType, body)
		return putErr, false
	})
	if err != nil {
		return session.Object{}, fmt.Errorf("upload %s: %w", item.FileName(), err)
	}

	report(item.Size)
	return object, nil
}

// uploadPartWithRetry retries one failed part in place, without touching any
// other part. A per-attempt timeout takes the same path as a transport
// failure. Cancellation aborts the retry loop immediately.
func (o *Orchestrator) uploadPartWithRetry(ctx context.Context, sess *session.Session, partNumber int32, body []byte) error {
	return retry.Times(o.config.PartRetries).Wait(o.config.PartRetryWait).TryWithAbort(func(attempt uint) (error, bool) {
		if err := ctx.Err(); err != nil {
			return err, true
		}
		if attempt > 0 {
			o.logger.Warnf("Retrying part %d (attempt %d)", partNumber, attempt+1)
			sess.Retryable()
		}

		partCtx, cancel := context.WithTimeout(ctx, o.config.PartTimeout)
		defer cancel()

		_, err := sess.UploadPart(partCtx, partNumber, body)
		return err, false
	})
}

// abortSession cleans up with a fresh context: the run context may already
// be cancelled, and abort must still reach the backend.
func (o *Orchestrator) abortSession(sess *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sess.Abort(ctx)
}
