// Package keystore serves read-only JSON documents keyed by application name.
// It backs the schema and values collaborator services.
package keystore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when no document exists for a name.
var ErrNotFound = errors.New("document not found")

// Source loads the raw document stored under name.
type Source interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// FileSource reads "<dir>/<name><suffix>".
type FileSource struct {
	dir    string
	suffix string
}

// NewFileSource creates a file-backed source.
func NewFileSource(dir, suffix string) *FileSource {
	return &FileSource{dir: dir, suffix: suffix}
}

// Path returns the file backing name.
func (s *FileSource) Path(name string) string {
	return filepath.Join(s.dir, name+s.suffix)
}

// Load implements Source.
func (s *FileSource) Load(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", s.Path(name), err)
	}
	return data, nil
}
