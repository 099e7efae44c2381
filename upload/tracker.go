package upload

import (
	"time"

	"github.com/bitrise-io/go-utils/v2/analytics"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

type batchTracker struct {
	tracker analytics.Tracker
	logger  log.Logger
}

func newBatchTracker(envRepo env.Repository, logger log.Logger) batchTracker {
	p := analytics.Properties{
		"app_version": envRepo.Get("DRIVELIFE_APP_VERSION"),
		"platform":    envRepo.Get("DRIVELIFE_PLATFORM"),
	}
	return batchTracker{
		tracker: analytics.NewDefaultTracker(logger, p),
		logger:  logger,
	}
}

func (t *batchTracker) logBatchUploaded(uploadTime time.Duration, totalBytes int64, fileCount int) {
	properties := analytics.Properties{
		"upload_time_s":     uploadTime.Truncate(time.Second).Seconds(),
		"upload_size_bytes": totalBytes,
		"file_count":        fileCount,
	}
	t.tracker.Enqueue("post_media_batch_uploaded", properties)
}

func (t *batchTracker) logBatchFailed(itemIndex int, cause string) {
	properties := analytics.Properties{
		"failed_item_index": itemIndex,
		"cause":             cause,
	}
	t.tracker.Enqueue("post_media_batch_failed", properties)
}

func (t *batchTracker) logBatchCancelled(uploadedBytes int64) {
	properties := analytics.Properties{
		"uploaded_bytes": uploadedBytes,
	}
	t.tracker.Enqueue("post_media_batch_cancelled", properties)
}

func (t *batchTracker) wait() {
	t.tracker.Wait()
}
