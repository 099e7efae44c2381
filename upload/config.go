package upload

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/kelseyhightower/envconfig"

	"github.com/keshan-spec/drivelife-app-core/media"
)

// Config holds the tunables of one upload pipeline instance.
type Config struct {
	// Bucket is the target object-store bucket.
	Bucket string

	// ChunkSize is the fixed part stride in bytes. Default: 5 MiB.
	ChunkSize int64

	// Limits gate which media items may enter the pipeline.
	Limits media.Limits

	// PartRetries is how many times a failed part upload is retried before
	// the file's session is aborted and the batch fails.
	PartRetries uint

	// PartRetryWait is the pause between part retry attempts.
	PartRetryWait time.Duration

	// PartTimeout bounds a single part upload attempt. A timeout takes the
	// same retry path as a transport failure.
	PartTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig(bucket string) Config {
	return Config{
		Bucket:    bucket,
		ChunkSize: 5 * 1024 * 1024,
		Limits: media.Limits{
			MaxFileSize:      100 * 1000 * 1000,
			MaxVideoDuration: 5 * time.Minute,
		},
		PartRetries:   3,
		PartRetryWait: 2 * time.Second,
		PartTimeout:   90 * time.Second,
	}
}

type envSettings struct {
	Bucket           string        `envconfig:"DRIVELIFE_MEDIA_BUCKET" required:"true"`
	ChunkSize        string        `envconfig:"DRIVELIFE_UPLOAD_CHUNK_SIZE" default:"5MiB"`
	MaxFileSize      string        `envconfig:"DRIVELIFE_MAX_FILE_SIZE" default:"100MB"`
	MaxVideoDuration time.Duration `envconfig:"DRIVELIFE_MAX_VIDEO_DURATION" default:"5m"`
	PartRetries      uint          `envconfig:"DRIVELIFE_PART_RETRIES" default:"3"`
	PartRetryWait    time.Duration `envconfig:"DRIVELIFE_PART_RETRY_WAIT" default:"2s"`
	PartTimeout      time.Duration `envconfig:"DRIVELIFE_PART_TIMEOUT" default:"90s"`
}

// ParseConfig reads the configuration from the environment. Sizes accept
// human-readable values ("5MiB", "100MB").
func ParseConfig() (Config, error) {
	var settings envSettings
	if err := envconfig.Process("", &settings); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}

	chunkSize, err := units.RAMInBytes(settings.ChunkSize)
	if err != nil {
		return Config{}, fmt.Errorf("parse chunk size %q: %w", settings.ChunkSize, err)
	}

	maxFileSize, err := units.FromHumanSize(settings.MaxFileSize)
	if err != nil {
		return Config{}, fmt.Errorf("parse max file size %q: %w", settings.MaxFileSize, err)
	}

	config := Config{
		Bucket:    settings.Bucket,
		ChunkSize: chunkSize,
		Limits: media.Limits{
			MaxFileSize:      maxFileSize,
			MaxVideoDuration: settings.MaxVideoDuration,
		},
		PartRetries:   settings.PartRetries,
		PartRetryWait: settings.PartRetryWait,
		PartTimeout:   settings.PartTimeout,
	}
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket must not be empty")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	return nil
}
