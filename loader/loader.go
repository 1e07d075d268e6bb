// Package loader provides settings file loading and encoding for plotrc.
//
// The loader package handles the native rc format (one "key = value"
// assignment per line), TOML settings files, and environment variables.
// Loaders parse and report per-line errors; validation and transactional
// application happen in the store.
package loader

import (
	"fmt"
	"io/fs"
	"os"
)

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	fs.FS
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// Open implements fs.FS.
func (OSFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// FormatError represents a malformed settings file.
type FormatError struct {
	// Path is the file path that failed to parse.
	Path string
	// Line is the line number where the error occurred (0 if unknown).
	Line int
	// Message describes the format error.
	Message string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("format error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("format error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *FormatError) Unwrap() error {
	return e.Err
}
