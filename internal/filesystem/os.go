// Package filesystem reads workspace files through the operating system.
package filesystem

import "os"

// OSFileSystem reads files with the operating system primitives.
type OSFileSystem struct{}

// ReadFile reads file contents.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
