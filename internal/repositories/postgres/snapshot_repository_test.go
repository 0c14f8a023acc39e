package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/repositories"
	"github.com/asakaida/rolegate/internal/repositories/codec"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	upsertQuery = regexp.QuoteMeta(`INSERT INTO snapshots (key, codec, data, updated_at, revision)`)
	selectQuery = regexp.QuoteMeta(`SELECT codec, data`)
)

func newMockRepo(t *testing.T, key string, c repositories.Codec) (*PostgresSnapshotRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	repo := NewPostgresSnapshotRepository(db, key, c)
	repo.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return repo, mock
}

func TestPostgresSnapshotRepository_Save(t *testing.T) {
	repo, mock := newMockRepo(t, "", codec.JSON{})
	s := entities.Seed(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	data, err := codec.JSON{}.Encode(s)
	require.NoError(t, err)

	mock.ExpectExec(upsertQuery).
		WithArgs(DefaultSnapshotKey, "json", data, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), s))
}

func TestPostgresSnapshotRepository_SaveMissingTable(t *testing.T) {
	repo, mock := newMockRepo(t, "console", codec.JSON{})

	mock.ExpectExec(upsertQuery).
		WillReturnError(&pq.Error{Code: "42P01", Message: `relation "snapshots" does not exist`})

	err := repo.Save(context.Background(), &entities.Snapshot{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run the snapshot migrations first")
}

func TestPostgresSnapshotRepository_Load(t *testing.T) {
	want := entities.Seed(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name    string
		repo    repositories.Codec
		stored  repositories.Codec
		rowName string
	}{
		{name: "same codec", repo: codec.JSON{}, stored: codec.JSON{}, rowName: "json"},
		{name: "row written as proto", repo: codec.JSON{}, stored: codec.Proto{}, rowName: "proto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t, "console", tt.repo)
			data, err := tt.stored.Encode(want)
			require.NoError(t, err)

			mock.ExpectQuery(selectQuery).
				WithArgs("console").
				WillReturnRows(sqlmock.NewRows([]string{"codec", "data"}).AddRow(tt.rowName, data))

			got, err := repo.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestPostgresSnapshotRepository_LoadNoRow(t *testing.T) {
	repo, mock := newMockRepo(t, "", nil)

	mock.ExpectQuery(selectQuery).
		WithArgs(DefaultSnapshotKey).
		WillReturnRows(sqlmock.NewRows([]string{"codec", "data"}))

	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, repositories.ErrNoSnapshot)
}

func TestPostgresSnapshotRepository_LoadErrors(t *testing.T) {
	t.Run("query failure", func(t *testing.T) {
		repo, mock := newMockRepo(t, "", nil)
		boom := errors.New("connection reset")
		mock.ExpectQuery(selectQuery).WillReturnError(boom)

		_, err := repo.Load(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unknown codec in row", func(t *testing.T) {
		repo, mock := newMockRepo(t, "", nil)
		mock.ExpectQuery(selectQuery).
			WillReturnRows(sqlmock.NewRows([]string{"codec", "data"}).AddRow("yaml", []byte("roles: []")))

		_, err := repo.Load(context.Background())
		assert.Error(t, err)
	})
}

func TestPostgresSnapshotRepository_Delete(t *testing.T) {
	repo, mock := newMockRepo(t, "console", nil)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM snapshots WHERE key = $1`)).
		WithArgs("console").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background()))
}

func TestPostgresSnapshotRepository_Integration(t *testing.T) {
	db := SetupTestDB(t)
	const key = "integration-test"
	defer CleanupTestDB(t, db, key)

	ctx := context.Background()
	repo := NewPostgresSnapshotRepository(db, key, codec.Proto{})
	require.NoError(t, repo.Delete(ctx))

	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, repositories.ErrNoSnapshot)

	want := entities.Seed(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, want))
	want.Users = want.Users[:1]
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Users, 1)
	assert.Len(t, got.Roles, 3)

	// a JSON reader decodes rows written with another codec
	got, err = NewPostgresSnapshotRepository(db, key, codec.JSON{}).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Users[0].ID, got.Users[0].ID)
}
