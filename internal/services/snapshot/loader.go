package snapshot

import (
	"context"
	"errors"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/repositories"
)

// Origin tells where an initial state came from
type Origin string

const (
	OriginStored Origin = "stored"
	OriginSeed   Origin = "seed"
)

// Loader reads the initial state, falling back to seed data when the
// repository has nothing usable
type Loader struct {
	repo   repositories.SnapshotRepository
	logger lager.Logger
	seed   func(time.Time) *entities.Snapshot
	now    func() time.Time
}

// NewLoader creates a Loader. A nil seed uses entities.Seed.
func NewLoader(repo repositories.SnapshotRepository, logger lager.Logger, seed func(time.Time) *entities.Snapshot) *Loader {
	if seed == nil {
		seed = entities.Seed
	}
	return &Loader{
		repo:   repo,
		logger: logger.Session("snapshot-loader"),
		seed:   seed,
		now:    time.Now,
	}
}

// Load returns the stored snapshot, or the seed when nothing is stored or the
// stored data cannot be read, decoded or validated
func (l *Loader) Load(ctx context.Context) (*entities.Snapshot, Origin) {
	if l.repo == nil {
		return l.seed(l.now()), OriginSeed
	}

	s, err := l.repo.Load(ctx)
	switch {
	case errors.Is(err, repositories.ErrNoSnapshot):
		l.logger.Info("no-snapshot-using-seed")
		return l.seed(l.now()), OriginSeed
	case err != nil:
		l.logger.Error("load-failed-using-seed", err)
		return l.seed(l.now()), OriginSeed
	}

	if err := s.Validate(); err != nil {
		l.logger.Error("invalid-snapshot-using-seed", err)
		return l.seed(l.now()), OriginSeed
	}

	l.logger.Info("loaded", lager.Data{"roles": len(s.Roles), "users": len(s.Users)})
	return s, OriginStored
}
