// Package chunk computes the fixed-stride part layout of a local media file
// and reads one part's byte window at a time.
package chunk

import (
	"fmt"
)

// Part is one contiguous byte range of a file, uploaded as a single request
// within a multipart session. Numbers are 1-based and contiguous.
type Part struct {
	Number int32
	Offset int64
	Length int64
}

// Layout splits size bytes into ceil(size/stride) parts. Every part has
// length stride except possibly the last, which is the remainder. A size
// that is an exact multiple of the stride yields a final part equal to the
// stride, never a trailing zero-length part.
func Layout(size, stride int64) ([]Part, error) {
	if size <= 0 {
		return nil, fmt.Errorf("file size must be positive, got %d", size)
	}
	if stride <= 0 {
		return nil, fmt.Errorf("chunk stride must be positive, got %d", stride)
	}

	numParts := (size + stride - 1) / stride
	parts := make([]Part, 0, numParts)
	for offset := int64(0); offset < size; offset += stride {
		length := stride
		if remaining := size - offset; remaining < stride {
			length = remaining
		}
		parts = append(parts, Part{
			Number: int32(len(parts) + 1),
			Offset: offset,
			Length: length,
		})
	}

	return parts, nil
}
