package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/repositories"
	"github.com/asakaida/rolegate/internal/repositories/codec"
	"github.com/spf13/afero"
)

// SnapshotRepository stores the snapshot as a single file.
// Writes go to a temporary file in the same directory and are renamed into
// place, so a reader never sees a half-written document.
type SnapshotRepository struct {
	fs    afero.Fs
	path  string
	codec repositories.Codec
}

// NewSnapshotRepository creates a file-backed repository at path on fs.
// A nil fs uses the operating system filesystem.
func NewSnapshotRepository(fs afero.Fs, path string, c repositories.Codec) *SnapshotRepository {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if c == nil {
		c = codec.JSON{}
	}
	return &SnapshotRepository{fs: fs, path: path, codec: c}
}

// Path returns the snapshot file location
func (r *SnapshotRepository) Path() string {
	return r.path
}

// Save writes s to the snapshot file
func (r *SnapshotRepository) Save(ctx context.Context, s *entities.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := r.codec.Encode(s)
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := afero.TempFile(r.fs, dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary snapshot file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		r.fs.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		r.fs.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}
	if err := r.fs.Rename(tmpName, r.path); err != nil {
		r.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}

// Load reads the snapshot file
func (r *SnapshotRepository) Load(ctx context.Context) (*entities.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(r.fs, r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, repositories.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return r.codec.Decode(data)
}
