// Package background runs one upload batch as a long-lived unit of work that
// survives the host UI being backgrounded, and enforces that only one batch
// is in flight process-wide.
package background

import (
	"context"
	"errors"
	"sync"

	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/keshan-spec/drivelife-app-core/media"
	"github.com/keshan-spec/drivelife-app-core/post"
	"github.com/keshan-spec/drivelife-app-core/upload"
)

// ErrConcurrentUpload is returned when a batch is requested while another is
// still in flight. The second batch is rejected, never queued.
var ErrConcurrentUpload = errors.New("an upload batch is already in flight")

// Status is the coarse batch state surfaced to the OS-level task system.
type Status int

const (
	StatusIdle Status = iota
	StatusUploading
	StatusSubmitting
	StatusSubmitted
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusUploading:
		return "uploading"
	case StatusSubmitting:
		return "submitting"
	case StatusSubmitted:
		return "submitted"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the batch has finished, one way or another.
func (s Status) Terminal() bool {
	return s == StatusSubmitted || s == StatusFailed || s == StatusCancelled
}

// KeepAlive is the platform foreground-service mechanism that keeps the
// process scheduled while a batch runs. Release is called when the batch
// reaches a terminal state.
type KeepAlive interface {
	Acquire(label string) (release func(), err error)
}

// NopKeepAlive satisfies KeepAlive on platforms without a keep-alive need.
type NopKeepAlive struct{}

// Acquire returns a no-op release.
func (NopKeepAlive) Acquire(label string) (func(), error) {
	return func() {}, nil
}

// Orchestrator uploads a media batch and returns its manifest.
type Orchestrator interface {
	Run(ctx context.Context, userID string, items []media.Item, onProgress upload.ProgressFunc) ([]upload.ManifestEntry, error)
}

// Submitter finalizes a post draft on the backend.
type Submitter interface {
	Submit(ctx context.Context, draft post.Draft) (string, error)
}

// Request carries everything needed to create one post.
type Request struct {
	UserID         string
	Caption        string
	Location       string
	TaggedEntities []post.TaggedEntity
	Items          []media.Item
}

// Result is the terminal outcome of one batch.
type Result struct {
	PostID string
	Err    error
}

// Runner drives one batch at a time from upload through submission.
type Runner struct {
	orchestrator Orchestrator
	submitter    Submitter
	keepAlive    KeepAlive
	logger       log.Logger

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
}

// NewRunner wires a batch runner. keepAlive may be nil.
func NewRunner(orchestrator Orchestrator, submitter Submitter, keepAlive KeepAlive, logger log.Logger) *Runner {
	if keepAlive == nil {
		keepAlive = NopKeepAlive{}
	}
	return &Runner{
		orchestrator: orchestrator,
		submitter:    submitter,
		keepAlive:    keepAlive,
		logger:       logger,
		status:       StatusIdle,
	}
}

// Start launches a batch. It returns ErrConcurrentUpload if one is already
// in flight. onDone receives the terminal result exactly once; onProgress
// may be nil.
func (r *Runner) Start(req Request, onProgress upload.ProgressFunc, onDone func(Result)) error {
	r.mu.Lock()
	if r.status == StatusUploading || r.status == StatusSubmitting {
		r.mu.Unlock()
		return ErrConcurrentUpload
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.status = StatusUploading
	r.cancel = cancel
	r.mu.Unlock()

	go r.run(ctx, req, onProgress, onDone)

	return nil
}

// Cancel stops the in-flight batch, if any. Cancellation propagates at the
// next operation boundary, not mid-transfer.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Status returns the current batch status. After a terminal state it keeps
// reporting that state until the next Start.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) run(ctx context.Context, req Request, onProgress upload.ProgressFunc, onDone func(Result)) {
	defer r.clearCancel()

	release, err := r.keepAlive.Acquire("create-post-upload")
	if err != nil {
		// The batch still runs; it just may not survive backgrounding.
		r.logger.Warnf("Failed to acquire keep-alive: %s", err)
		release = func() {}
	}
	defer release()

	manifest, err := r.orchestrator.Run(ctx, req.UserID, req.Items, onProgress)
	if err != nil {
		if errors.Is(err, upload.ErrCancelled) {
			r.setStatus(StatusCancelled)
		} else {
			r.setStatus(StatusFailed)
		}
		r.finish(onDone, Result{Err: err})
		return
	}

	r.setStatus(StatusSubmitting)

	postID, err := r.submitter.Submit(ctx, post.Draft{
		UserID:         req.UserID,
		Caption:        req.Caption,
		Location:       req.Location,
		TaggedEntities: req.TaggedEntities,
		Media:          manifest,
	})
	if err != nil {
		r.setStatus(StatusFailed)
		r.finish(onDone, Result{Err: err})
		return
	}

	r.setStatus(StatusSubmitted)
	r.finish(onDone, Result{PostID: postID})
}

func (r *Runner) finish(onDone func(Result), result Result) {
	if result.Err != nil {
		r.logger.Errorf("Upload batch finished with error: %s", result.Err)
	} else {
		r.logger.Donef("Post %s created", result.PostID)
	}
	if onDone != nil {
		onDone(result)
	}
}

func (r *Runner) setStatus(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

func (r *Runner) clearCancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
