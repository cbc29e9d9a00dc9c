// Package storage defines the rooted file-system abstraction documents are read through.
package storage

import (
	"errors"
	"io"
	"io/fs"
)

// ErrOutsideRoot is returned for any path that resolves outside the root.
var ErrOutsideRoot = errors.New("storage: path escapes root")

// Provider is the interface for rooted file operations. Paths are
// slash-separated and relative to Root.
type Provider interface {
	// Root returns the absolute directory all paths resolve under.
	Root() string
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
	// Glob returns every file matching a doublestar pattern (e.g. "**/dataset.json"), sorted.
	Glob(pattern string) ([]string, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// WriteFrom atomically writes everything read from r to path.
	WriteFrom(path string, r io.Reader) error
}
