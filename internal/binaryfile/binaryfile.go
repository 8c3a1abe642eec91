// Package binaryfile loads target binaries fully into memory exactly
// once, matching the ownership rule that target buffers are shared
// read-only by every search performed against them.
package binaryfile

import (
	"os"

	"github.com/standardbeagle/armcorrelate/internal/corerr"
)

// Buffer is a fully loaded, read-only binary file plus a stable ID used
// as a search-cache key.
type Buffer struct {
	ID    string
	Path  string
	Bytes []byte
}

// Load reads path whole into memory.
func Load(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &corerr.NotFoundError{Path: path}
		}
		return nil, err
	}
	return &Buffer{ID: path, Path: path, Bytes: data}, nil
}

// Len returns the buffer length in bytes.
func (b *Buffer) Len() int {
	return len(b.Bytes)
}
