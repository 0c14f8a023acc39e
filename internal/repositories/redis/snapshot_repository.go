package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/repositories"
	"github.com/asakaida/rolegate/internal/repositories/codec"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultKey is the redis key used when none is configured
const DefaultKey = "rolegate:snapshot"

// SnapshotRepository stores the encoded snapshot under a single redis key.
// The codec name is kept in a sibling key so Load can decode older writes.
type SnapshotRepository struct {
	client goredis.UniversalClient
	key    string
	codec  repositories.Codec
	ttl    time.Duration
}

// NewSnapshotRepository creates a redis-backed repository. A zero ttl keeps the
// snapshot forever.
func NewSnapshotRepository(client goredis.UniversalClient, key string, c repositories.Codec, ttl time.Duration) *SnapshotRepository {
	if key == "" {
		key = DefaultKey
	}
	if c == nil {
		c = codec.JSON{}
	}
	return &SnapshotRepository{client: client, key: key, codec: c, ttl: ttl}
}

func (r *SnapshotRepository) codecKey() string {
	return r.key + ":codec"
}

// Save writes the snapshot and its codec name in one transaction
func (r *SnapshotRepository) Save(ctx context.Context, s *entities.Snapshot) error {
	data, err := r.codec.Encode(s)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, r.key, data, r.ttl)
		pipe.Set(ctx, r.codecKey(), r.codec.Name(), r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot to redis: %w", err)
	}
	return nil
}

// Load reads the snapshot key
func (r *SnapshotRepository) Load(ctx context.Context) (*entities.Snapshot, error) {
	values, err := r.client.MGet(ctx, r.key, r.codecKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot from redis: %w", err)
	}

	raw, ok := values[0].(string)
	if !ok {
		return nil, repositories.ErrNoSnapshot
	}

	dec := r.codec
	if name, ok := values[1].(string); ok && name != dec.Name() {
		if dec, err = codec.ByName(name); err != nil {
			return nil, err
		}
	}
	return dec.Decode([]byte(raw))
}

// Delete removes the snapshot keys
func (r *SnapshotRepository) Delete(ctx context.Context) error {
	err := r.client.Del(ctx, r.key, r.codecKey()).Err()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("failed to delete snapshot from redis: %w", err)
	}
	return nil
}
