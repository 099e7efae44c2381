// Package media holds the model of user-selected assets handed to the upload
// pipeline and the validation limits that gate what may enter it.
package media

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"
)

// Type is the coarse classification of an asset.
type Type string

const (
	TypeImage Type = "image"
	TypeVideo Type = "video"
)

// Item is one user-selected asset. Immutable once handed to the orchestrator.
type Item struct {
	// ID is a stable client-side identifier assigned at selection time.
	ID string `json:"id"`
	// URI is the local file handle (a path on mobile platforms).
	URI      string        `json:"uri"`
	Size     int64         `json:"size"`
	MimeType string        `json:"mime_type"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Type classifies the item from its declared MIME type. Anything that is not
// a video is treated as an image, matching the create-post flow which only
// ever selects photos or videos.
func (i Item) Type() Type {
	if strings.HasPrefix(i.MimeType, "video/") {
		return TypeVideo
	}
	return TypeImage
}

// FileName returns the base name of the local file.
func (i Item) FileName() string {
	return filepath.Base(i.URI)
}

// Limits gate which items may enter the upload pipeline.
type Limits struct {
	// MaxFileSize is the largest accepted asset in bytes.
	MaxFileSize int64
	// MaxVideoDuration is the longest accepted video clip.
	MaxVideoDuration time.Duration
}

// Validate rejects items that must never reach the pipeline: unknown or
// non-positive size, oversized files and over-length videos.
func (l Limits) Validate(item Item) error {
	if item.Size <= 0 {
		return fmt.Errorf("media %s: byte size must be known and positive, got %d", item.ID, item.Size)
	}
	if l.MaxFileSize > 0 && item.Size > l.MaxFileSize {
		return fmt.Errorf("media %s: size %s exceeds the %s limit",
			item.ID, units.BytesSize(float64(item.Size)), units.BytesSize(float64(l.MaxFileSize)))
	}
	if item.Type() == TypeVideo && l.MaxVideoDuration > 0 && item.Duration > l.MaxVideoDuration {
		return fmt.Errorf("media %s: duration %s exceeds the %s limit",
			item.ID, item.Duration, l.MaxVideoDuration)
	}
	return nil
}

// ObjectKey derives the remote object key for a file name. A random qualifier
// is prepended so two posts with identically named camera-roll files never
// collide in the bucket.
func ObjectKey(userID, fileName string) string {
	return fmt.Sprintf("posts/%s/%s-%s", userID, uuid.NewString(), sanitizeFileName(fileName))
}

func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
