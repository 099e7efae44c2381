package chunk

import (
	"fmt"
	"io"
	"os"
)

// Reader reads fixed-size byte windows from a local media file. A short read
// is never returned silently: ReadAt reports the exact number of bytes read
// so the caller can detect end-of-file.
type Reader struct {
	file *os.File
	size int64
}

// Open opens the file behind a media item's local URI and stats its size.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat media file: %w", err)
	}

	return &Reader{file: file, size: info.Size()}, nil
}

// Size returns the file size observed at open time.
func (r *Reader) Size() int64 {
	return r.size
}

// ReadAt reads exactly min(length, size-offset) bytes starting at offset.
// The returned slice's length is the actual byte count read.
func (r *Reader) ReadAt(offset, length int64) ([]byte, error) {
	if offset < 0 || offset >= r.size {
		return nil, fmt.Errorf("offset %d out of range [0, %d)", offset, r.size)
	}
	if length <= 0 {
		return nil, fmt.Errorf("read length must be positive, got %d", length)
	}

	if remaining := r.size - offset; length > remaining {
		length = remaining
	}

	buf := make([]byte, length)
	n, err := r.file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %d bytes at offset %d: %w", length, offset, err)
	}
	// The file can shrink between Open and the read; the window above was
	// capped against the size observed at open. A padded buffer must never
	// leave this function.
	if int64(n) < length {
		return nil, fmt.Errorf("read %d bytes at offset %d, want %d: file truncated after open", n, offset, length)
	}

	return buf, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
