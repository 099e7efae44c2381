package session

import (
	"context"
	"fmt"
)

// fakeTransport records the multipart calls it receives and can inject
// failures per operation.
type fakeTransport struct {
	initiateErr  error
	partErr      error
	failPartOnce int32
	completeErr  error
	abortErr     error
	putErr       error

	initiateCalls int
	partCalls     int
	completeCalls int
	abortCalls    int
	putCalls      int

	partBodies    map[int32][]byte
	completedWith []CompletedPart
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{partBodies: map[int32][]byte{}}
}

func (f *fakeTransport) Initiate(ctx context.Context, bucket, key, contentType string) (string, error) {
	f.initiateCalls++
	if f.initiateErr != nil {
		return "", f.initiateErr
	}
	return fmt.Sprintf("upload-%d", f.initiateCalls), nil
}

func (f *fakeTransport) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body []byte) (string, error) {
	f.partCalls++
	if f.partErr != nil {
		return "", f.partErr
	}
	if f.failPartOnce == partNumber {
		f.failPartOnce = 0
		return "", fmt.Errorf("injected failure for part %d", partNumber)
	}
	f.partBodies[partNumber] = append([]byte(nil), body...)
	return fmt.Sprintf("etag-%d", partNumber), nil
}

func (f *fakeTransport) Complete(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) (Object, error) {
	f.completeCalls++
	if f.completeErr != nil {
		return Object{}, f.completeErr
	}
	f.completedWith = append([]CompletedPart(nil), parts...)
	return Object{
		URL: fmt.Sprintf("https://%s.example.com/%s", bucket, key),
		Key: key,
	}, nil
}

func (f *fakeTransport) Abort(ctx context.Context, bucket, key, uploadID string) error {
	f.abortCalls++
	return f.abortErr
}

func (f *fakeTransport) Put(ctx context.Context, bucket, key, contentType string, body []byte) (Object, error) {
	f.putCalls++
	if f.putErr != nil {
		return Object{}, f.putErr
	}
	return Object{
		URL: fmt.Sprintf("https://%s.example.com/%s", bucket, key),
		Key: key,
	}, nil
}
