package memory

import (
	"context"
	"sync"

	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/repositories"
	"github.com/asakaida/rolegate/internal/repositories/codec"
)

// SnapshotRepository keeps the encoded snapshot in process memory.
// Saved snapshots go through the codec so callers never share state with it.
type SnapshotRepository struct {
	mu    sync.RWMutex
	codec repositories.Codec
	data  []byte
	saves int
}

// NewSnapshotRepository creates an empty in-memory repository
func NewSnapshotRepository(c repositories.Codec) *SnapshotRepository {
	if c == nil {
		c = codec.JSON{}
	}
	return &SnapshotRepository{codec: c}
}

// Save encodes and stores s
func (r *SnapshotRepository) Save(ctx context.Context, s *entities.Snapshot) error {
	data, err := r.codec.Encode(s)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = data
	r.saves++
	return nil
}

// Load decodes the stored snapshot
func (r *SnapshotRepository) Load(ctx context.Context) (*entities.Snapshot, error) {
	r.mu.RLock()
	data := r.data
	r.mu.RUnlock()

	if data == nil {
		return nil, repositories.ErrNoSnapshot
	}
	return r.codec.Decode(data)
}

// Saves returns how many snapshots have been written
func (r *SnapshotRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

// Raw returns the stored encoded bytes, nil when nothing was saved
func (r *SnapshotRepository) Raw() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.data == nil {
		return nil
	}
	out := make([]byte, len(r.data))
	copy(out, r.data)
	return out
}

// SetRaw replaces the stored bytes, bypassing the codec
func (r *SnapshotRepository) SetRaw(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = data
}
