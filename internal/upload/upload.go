// Package upload turns an uploaded file into fully buffered XES text,
// decompressing .xes.gz and .xes.zst archives on the way.
package upload

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrTooLarge is returned when the decompressed log exceeds the read limit.
var ErrTooLarge = errors.New("upload too large")

// Recognised file extensions.
const (
	ExtXES     = ".xes"
	ExtXESGzip = ".xes.gz"
	ExtXESZstd = ".xes.zst"
)

// Allowed reports whether name ends with one of exts (case-insensitive).
func Allowed(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if ext != "" && strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// Read buffers the whole upload in memory, decompressing it when name
// carries a compressed extension. limit caps the decompressed size; zero
// disables the cap.
func Read(name string, r io.Reader, limit int64) ([]byte, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ExtXESGzip):
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip %s: %w", name, err)
		}
		defer zr.Close()
		return readLimited(zr, limit)
	case strings.HasSuffix(lower, ExtXESZstd):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open zstd %s: %w", name, err)
		}
		defer zr.Close()
		return readLimited(zr, limit)
	default:
		return readLimited(r, limit)
	}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}
