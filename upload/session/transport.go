package session

import (
	"context"
)

// CompletedPart pairs a part number with the integrity token the storage
// backend returned for it.
type CompletedPart struct {
	Number int32
	ETag   string
}

// Object describes the remote object a finished upload produced.
type Object struct {
	// URL is the publicly addressable location of the object.
	URL string
	// Key is the object key within the bucket.
	Key string
}

// Transport is the object-store multipart protocol the session drives.
// Implementations do not retry; retry policy lives with the caller.
type Transport interface {
	// Initiate opens a multipart upload and returns its opaque upload id.
	Initiate(ctx context.Context, bucket, key, contentType string) (string, error)

	// UploadPart uploads one numbered part and returns its integrity token.
	// Re-sending the same part number with identical bytes is safe: the
	// protocol is last-write-wins per part number.
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body []byte) (string, error)

	// Complete assembles the uploaded parts into the final object.
	Complete(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) (Object, error)

	// Abort discards the upload session and any parts uploaded so far.
	Abort(ctx context.Context, bucket, key, uploadID string) error

	// Put uploads a whole object in a single request. Used for files that
	// fit inside one chunk stride, where a multipart session is overhead.
	Put(ctx context.Context, bucket, key, contentType string, body []byte) (Object, error)
}
