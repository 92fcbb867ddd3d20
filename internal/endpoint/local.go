package endpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lodtree/lodtree/internal/octerr"
)

// LocalEndpoint persists chunk blobs as files under a root directory, one
// file per path. Adapted from the teacher's FileWriter: where that
// type tracked byte offsets into a single HDF5 file via an Allocator,
// LocalEndpoint instead gives every chunk its own file, since chunk blobs are
// independently addressed and never share backing storage.
type LocalEndpoint struct {
	root string
}

// NewLocalEndpoint roots an endpoint at dir. dir is created if
// it does not already exist.
func NewLocalEndpoint(dir string) (*LocalEndpoint, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("endpoint: create root %s: %w", dir, err)
	}
	return &LocalEndpoint{root: dir}, nil
}

func (l *LocalEndpoint) Put(_ context.Context, path string, data []byte) error {
	full := filepath.Join(l.root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("endpoint: create parent dir for %s: %w", path, err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("endpoint: write %s: %w", path, err)
	}
	// rename is atomic on the same filesystem, so a reader never sees
	// a partially written blob at the final path
	if err := os.Rename(tmp, full); err != nil {
		return fmt.Errorf("endpoint: finalize %s: %w", path, err)
	}
	return nil
}

func (l *LocalEndpoint) Get(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.root, path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("endpoint: read %s: %w", path, octerr.ErrChunkNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("endpoint: read %s: %w", path, err)
	}
	return data, nil
}
