package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/repositories"
	"github.com/asakaida/rolegate/internal/repositories/codec"
	"github.com/lib/pq"
)

// DefaultSnapshotKey is the row key used when none is configured
const DefaultSnapshotKey = "default"

// undefinedTable is the PostgreSQL error code for a missing relation
const undefinedTable = "42P01"

// PostgresSnapshotRepository implements SnapshotRepository using one row of the
// snapshots table per key
type PostgresSnapshotRepository struct {
	db    *sql.DB
	key   string
	codec repositories.Codec
	now   func() time.Time
}

// NewPostgresSnapshotRepository creates a new PostgreSQL snapshot repository
func NewPostgresSnapshotRepository(db *sql.DB, key string, c repositories.Codec) *PostgresSnapshotRepository {
	if key == "" {
		key = DefaultSnapshotKey
	}
	if c == nil {
		c = codec.JSON{}
	}
	return &PostgresSnapshotRepository{db: db, key: key, codec: c, now: time.Now}
}

// Save upserts the snapshot row
func (r *PostgresSnapshotRepository) Save(ctx context.Context, s *entities.Snapshot) error {
	data, err := r.codec.Encode(s)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO snapshots (key, codec, data, updated_at, revision)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (key)
		DO UPDATE SET codec = EXCLUDED.codec,
		              data = EXCLUDED.data,
		              updated_at = EXCLUDED.updated_at,
		              revision = snapshots.revision + 1
	`
	if _, err := r.db.ExecContext(ctx, query, r.key, r.codec.Name(), data, r.now().UTC()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", describe(err))
	}
	return nil
}

// Load reads the snapshot row. A row written with another codec is decoded
// with that codec.
func (r *PostgresSnapshotRepository) Load(ctx context.Context) (*entities.Snapshot, error) {
	query := `
		SELECT codec, data
		FROM snapshots
		WHERE key = $1
	`
	var (
		codecName string
		data      []byte
	)
	err := r.db.QueryRowContext(ctx, query, r.key).Scan(&codecName, &data)
	if err == sql.ErrNoRows {
		return nil, repositories.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", describe(err))
	}

	dec := r.codec
	if codecName != dec.Name() {
		if dec, err = codec.ByName(codecName); err != nil {
			return nil, err
		}
	}
	return dec.Decode(data)
}

// Delete removes the snapshot row
func (r *PostgresSnapshotRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = $1`, r.key); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", describe(err))
	}
	return nil
}

// describe adds a migration hint to errors caused by a missing table
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return fmt.Errorf("%w (run the snapshot migrations first)", err)
	}
	return err
}
