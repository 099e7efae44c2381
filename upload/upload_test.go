package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshan-spec/drivelife-app-core/media"
)

func testConfig() Config {
	return Config{
		Bucket:        "media-bucket",
		ChunkSize:     10,
		PartRetries:   2,
		PartRetryWait: 0,
		PartTimeout:   time.Second,
	}
}

func writeMediaFile(t *testing.T, name string, size int) media.Item {
	t.Helper()

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))

	return media.Item{
		ID:       name,
		URI:      path,
		Size:     int64(size),
		MimeType: "image/jpeg",
		Width:    1080,
		Height:   720,
	}
}

func TestRun_SingleMultipartFile(t *testing.T) {
	transport := newFakeTransport()
	o := newTestOrchestrator(transport, testConfig())
	item := writeMediaFile(t, "a.jpg", 25) // 10 + 10 + 5

	manifest, err := o.Run(context.Background(), "user-1", []media.Item{item}, nil)
	require.NoError(t, err)
	require.Len(t, manifest, 1)

	require.Len(t, transport.initiated, 1)
	key := transport.initiated[0]
	assert.Equal(t, []int32{1, 2, 3}, transport.uploadedParts[key])
	assert.Equal(t, []int64{10, 10, 5}, transport.partSizes[key])

	completed := transport.completed[key]
	require.Len(t, completed, 3)
	for i, part := range completed {
		assert.Equal(t, int32(i+1), part.Number)
		assert.NotEmpty(t, part.ETag)
	}

	entry := manifest[0]
	assert.Equal(t, key, entry.Key)
	assert.Equal(t, "image/jpeg", entry.MimeType)
	assert.Equal(t, media.TypeImage, entry.Type)
	assert.Equal(t, 1080, entry.Width)
	assert.Equal(t, 720, entry.Height)
	assert.Empty(t, transport.aborted)
}

func TestRun_SmallFileUsesSinglePut(t *testing.T) {
	transport := newFakeTransport()
	o := newTestOrchestrator(transport, testConfig())
	item := writeMediaFile(t, "small.jpg", 8)

	var samples []Progress
	manifest, err := o.Run(context.Background(), "user-1", []media.Item{item}, func(p Progress) {
		samples = append(samples, p)
	})
	require.NoError(t, err)
	require.Len(t, manifest, 1)

	assert.Len(t, transport.putKeys, 1)
	assert.Empty(t, transport.initiated, "no multipart session for a sub-stride file")

	require.Len(t, samples, 1)
	assert.Equal(t, int64(8), samples[0].BatchBytesSent)
	assert.Equal(t, 1.0, samples[0].Fraction())
}

func TestRun_ProgressMonotonicAndCompleteOnlyAtEnd(t *testing.T) {
	transport := newFakeTransport()
	o := newTestOrchestrator(transport, testConfig())
	items := []media.Item{
		writeMediaFile(t, "a.jpg", 25),
		writeMediaFile(t, "b.jpg", 30),
	}

	var samples []Progress
	_, err := o.Run(context.Background(), "user-1", items, func(p Progress) {
		samples = append(samples, p)
	})
	require.NoError(t, err)

	// One sample per acknowledged part: 3 for a.jpg, 3 for b.jpg.
	require.Len(t, samples, 6)

	var prev int64 = -1
	for i, p := range samples {
		assert.GreaterOrEqual(t, p.BatchBytesSent, prev, "progress must never decrease")
		assert.Equal(t, int64(55), p.BatchBytesTotal)
		if i < len(samples)-1 {
			assert.Less(t, p.Fraction(), 1.0, "100%% only after the last part is acknowledged")
		}
		prev = p.BatchBytesSent
	}
	assert.Equal(t, 1.0, samples[len(samples)-1].Fraction())
}

func TestRun_TransientPartFailureIsRetriedInPlace(t *testing.T) {
	transport := newFakeTransport()
	o := newTestOrchestrator(transport, testConfig())
	item := writeMediaFile(t, "a.jpg", 25)

	// Baseline run with no failures, to compare the manifest shape against.
	baseline, err := o.Run(context.Background(), "user-1", []media.Item{item}, nil)
	require.NoError(t, err)

	transport2 := newFakeTransport()
	o2 := newTestOrchestrator(transport2, testConfig())
	transport2.initiateHook = func(key string) {
		transport2.failPart(key, 2, 1)
	}

	manifest, err := o2.Run(context.Background(), "user-1", []media.Item{item}, nil)
	require.NoError(t, err, "a single transient failure must be absorbed by the retry")
	require.Len(t, manifest, 1)

	key := transport2.initiated[0]
	// Parts 1 and 3 were sent exactly once; part 2 succeeded on attempt 2.
	assert.Equal(t, []int32{1, 2, 3}, transport2.uploadedParts[key])
	assert.Len(t, transport2.completed[key], 3)
	assert.Empty(t, transport2.aborted)

	// Same shape as the no-failure manifest.
	assert.Equal(t, baseline[0].MimeType, manifest[0].MimeType)
	assert.Equal(t, baseline[0].Type, manifest[0].Type)
}

func TestRun_ExhaustedRetriesFailTheBatch(t *testing.T) {
	transport := newFakeTransport()
	transport.initiateHook = func(key string) {
		transport.failPart(key, 2, 100)
	}
	o := newTestOrchestrator(transport, testConfig())
	item := writeMediaFile(t, "a.jpg", 25)

	_, err := o.Run(context.Background(), "user-1", []media.Item{item}, nil)
	require.Error(t, err)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 0, batchErr.ItemIndex)

	require.Len(t, transport.initiated, 1)
	assert.Equal(t, []string{transport.initiated[0]}, transport.aborted, "failed session must be aborted")
	assert.Empty(t, transport.completed)
}

func TestRun_FailureOnSecondFileNamesIt(t *testing.T) {
	transport := newFakeTransport()
	o := newTestOrchestrator(transport, testConfig())
	items := []media.Item{
		writeMediaFile(t, "a.jpg", 25),
		{ID: "missing", URI: filepath.Join(t.TempDir(), "gone.jpg"), Size: 25, MimeType: "image/jpeg"},
		writeMediaFile(t, "c.jpg", 25),
	}

	manifest, err := o.Run(context.Background(), "user-1", items, nil)
	require.Error(t, err)
	assert.Nil(t, manifest, "no partial success is surfaced")

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 1, batchErr.ItemIndex)

	assert.Len(t, transport.initiated, 1, "file 3 is never started")
}

func TestRun_CancellationBetweenParts(t *testing.T) {
	transport := newFakeTransport()
	config := testConfig()
	o := newTestOrchestrator(transport, config)
	item := writeMediaFile(t, "big.jpg", 100) // 10 parts of 10 bytes

	ctx, cancel := context.WithCancel(context.Background())
	_, err := o.Run(ctx, "user-1", []media.Item{item}, func(p Progress) {
		if p.ItemBytesSent == 30 {
			cancel()
		}
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCancelled), "cancellation is distinct from batch failure")

	key := transport.initiated[0]
	assert.Equal(t, []int32{1, 2, 3}, transport.uploadedParts[key], "part 4 is never sent")
	assert.Empty(t, transport.completed, "no complete call for a cancelled session")
	assert.Equal(t, []string{key}, transport.aborted)
}

func TestRun_ValidationRejectsBeforeAnyUpload(t *testing.T) {
	transport := newFakeTransport()
	config := testConfig()
	config.Limits = media.Limits{MaxFileSize: 20}
	o := newTestOrchestrator(transport, config)
	items := []media.Item{
		writeMediaFile(t, "ok.jpg", 15),
		writeMediaFile(t, "huge.jpg", 25),
	}

	_, err := o.Run(context.Background(), "user-1", items, nil)
	require.Error(t, err)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 1, batchErr.ItemIndex)
	assert.Empty(t, transport.initiated, "nothing is uploaded when validation fails")
	assert.Empty(t, transport.putKeys)
}

func TestRun_EmptyBatch(t *testing.T) {
	o := newTestOrchestrator(newFakeTransport(), testConfig())

	_, err := o.Run(context.Background(), "user-1", nil, nil)
	require.ErrorIs(t, err, ErrEmptyBatch)

	var batchErr *BatchError
	assert.False(t, errors.As(err, &batchErr), "an empty batch must not name a phantom item")
}

func TestRun_DeclaredSizeMismatch(t *testing.T) {
	transport := newFakeTransport()
	o := newTestOrchestrator(transport, testConfig())
	item := writeMediaFile(t, "a.jpg", 25)
	item.Size = 30 // declared size no longer matches the file

	_, err := o.Run(context.Background(), "user-1", []media.Item{item}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "changed size")
	assert.Empty(t, transport.initiated)
}
