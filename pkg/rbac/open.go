package rbac

import (
	"context"
	"fmt"

	"github.com/asakaida/rolegate/internal/infrastructure/config"
	"github.com/asakaida/rolegate/internal/infrastructure/database"
	"github.com/asakaida/rolegate/internal/infrastructure/logging"
	"github.com/asakaida/rolegate/internal/repositories"
	"github.com/asakaida/rolegate/internal/repositories/codec"
	"github.com/asakaida/rolegate/internal/repositories/file"
	"github.com/asakaida/rolegate/internal/repositories/memory"
	"github.com/asakaida/rolegate/internal/repositories/postgres"
	"github.com/asakaida/rolegate/internal/repositories/redis"
	"github.com/asakaida/rolegate/pkg/cache/memorycache"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

// LoadConfig reads .env.<env> and the environment into a Config
func LoadConfig(env string) (*Config, error) {
	if err := config.InitConfig(env); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	return config.Load()
}

// Open builds the snapshot repository, logger and cache described by cfg and
// starts an Engine over them. Fields of opts other than Repository, Logger
// and Cache are passed through; a non-nil opts.Logger wins over cfg.Log.
func Open(ctx context.Context, cfg *Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		logger, _, err := logging.New("rolegate", cfg.Log.Level, nil)
		if err != nil {
			return nil, err
		}
		opts.Logger = logger
	}

	if cfg.Cache.Enabled {
		opts.Cache = &memorycache.Config{MaxEntries: cfg.Cache.MaxEntries, TTL: cfg.Cache.TTL()}
	} else {
		opts.Cache = nil
	}

	repo, closer, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts.Repository = repo

	e, err := New(ctx, opts)
	if err != nil {
		if closer != nil {
			closer()
		}
		return nil, err
	}
	if closer != nil {
		e.closers = append(e.closers, closer)
	}
	return e, nil
}

// openRepository returns the configured repository and, for network backends,
// a function releasing its connection
func openRepository(ctx context.Context, cfg *Config) (repositories.SnapshotRepository, func() error, error) {
	c, err := codec.ByName(cfg.Snapshot.Codec)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Snapshot.Backend {
	case config.BackendMemory:
		return memory.NewSnapshotRepository(c), nil, nil

	case config.BackendFile:
		return file.NewSnapshotRepository(afero.NewOsFs(), cfg.Snapshot.File, c), nil, nil

	case config.BackendPostgres:
		pg, err := database.NewPostgres(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewPostgresSnapshotRepository(pg.DB, cfg.Snapshot.Key, c), pg.Close, nil

	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return redis.NewSnapshotRepository(client, cfg.Snapshot.Key, c, 0), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshot.Backend)
	}
}
