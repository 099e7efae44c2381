package upload

import (
	"context"
	"fmt"
	"sync"

	"github.com/bitrise-io/go-utils/v2/analytics"
	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/keshan-spec/drivelife-app-core/upload/session"
)

type fakeTracker struct {
	events []string
}

func (t *fakeTracker) Enqueue(eventName string, properties ...analytics.Properties) {
	t.events = append(t.events, eventName)
}

func (t *fakeTracker) Wait() {}

// fakeTransport records every multipart call and can inject per-part
// failures. partFailures maps "key/partNumber" to the number of times that
// part should fail before succeeding.
type fakeTransport struct {
	mu sync.Mutex

	partFailures map[string]int
	initiateErr  error
	completeErr  error
	putErr       error

	// initiateHook runs after a session is initiated, with the object key.
	// Tests use it to arm part failures for keys generated during the run.
	initiateHook func(key string)

	initiated     []string
	uploadedParts map[string][]int32
	partSizes     map[string][]int64
	completed     map[string][]session.CompletedPart
	aborted       []string
	putKeys       []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		partFailures:  map[string]int{},
		uploadedParts: map[string][]int32{},
		partSizes:     map[string][]int64{},
		completed:     map[string][]session.CompletedPart{},
	}
}

func (f *fakeTransport) failPart(key string, partNumber int32, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partFailures[fmt.Sprintf("%s/%d", key, partNumber)] = times
}

func (f *fakeTransport) Initiate(ctx context.Context, bucket, key, contentType string) (string, error) {
	f.mu.Lock()
	if f.initiateErr != nil {
		f.mu.Unlock()
		return "", f.initiateErr
	}
	f.initiated = append(f.initiated, key)
	uploadID := fmt.Sprintf("upload-%d", len(f.initiated))
	hook := f.initiateHook
	f.mu.Unlock()

	if hook != nil {
		hook(key)
	}
	return uploadID, nil
}

func (f *fakeTransport) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	failKey := fmt.Sprintf("%s/%d", key, partNumber)
	if f.partFailures[failKey] > 0 {
		f.partFailures[failKey]--
		return "", fmt.Errorf("injected transport failure for part %d", partNumber)
	}

	f.uploadedParts[key] = append(f.uploadedParts[key], partNumber)
	f.partSizes[key] = append(f.partSizes[key], int64(len(body)))
	return fmt.Sprintf("etag-%s-%d", key, partNumber), nil
}

func (f *fakeTransport) Complete(ctx context.Context, bucket, key, uploadID string, parts []session.CompletedPart) (session.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return session.Object{}, f.completeErr
	}
	f.completed[key] = append([]session.CompletedPart(nil), parts...)
	return session.Object{
		URL: fmt.Sprintf("https://%s.example.com/%s", bucket, key),
		Key: key,
	}, nil
}

func (f *fakeTransport) Abort(ctx context.Context, bucket, key, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = append(f.aborted, key)
	return nil
}

func (f *fakeTransport) Put(ctx context.Context, bucket, key, contentType string, body []byte) (session.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return session.Object{}, f.putErr
	}
	f.putKeys = append(f.putKeys, key)
	return session.Object{
		URL: fmt.Sprintf("https://%s.example.com/%s", bucket, key),
		Key: key,
	}, nil
}

func newTestOrchestrator(transport session.Transport, config Config) *Orchestrator {
	logger := log.NewLogger()
	return &Orchestrator{
		transport: transport,
		config:    config,
		logger:    logger,
		tracker:   batchTracker{tracker: &fakeTracker{}, logger: logger},
	}
}
