package repositories

import (
	"context"
	"errors"

	"github.com/asakaida/rolegate/internal/entities"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotRepository defines the persistence adapter for the role and user stores.
// Implementations only ever see serialised copies; they never mutate live state.
type SnapshotRepository interface {
	// Save replaces the stored snapshot with s
	Save(ctx context.Context, s *entities.Snapshot) error

	// Load returns the stored snapshot, or ErrNoSnapshot when none exists
	Load(ctx context.Context) (*entities.Snapshot, error)
}

// Codec converts snapshots to and from bytes
type Codec interface {
	// Name identifies the encoding (e.g., "json", "proto")
	Name() string

	Encode(s *entities.Snapshot) ([]byte, error)
	Decode(data []byte) (*entities.Snapshot, error)
}
