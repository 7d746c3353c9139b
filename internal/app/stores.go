package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/ballotbox/internal/config"
	"github.com/prn-tf/ballotbox/internal/lock"
	"github.com/prn-tf/ballotbox/internal/repository"
	"github.com/prn-tf/ballotbox/internal/repository/postgres"
	"github.com/prn-tf/ballotbox/internal/repository/sqlite"
	"github.com/prn-tf/ballotbox/internal/repository/textfile"
)

// NewStoreFactory returns a factory with every snapshot store driver registered.
func NewStoreFactory(cfg *config.Config, logger zerolog.Logger) *repository.Factory {
	return repository.NewFactory(cfg, logger).
		Register(config.DriverText, openTextStore).
		Register(config.DriverSQLite, openSQLiteStore).
		Register(config.DriverPostgres, openPostgresStore)
}

// TextPaths returns the state file paths under the data directory.
func TextPaths(cfg config.DataConfig) textfile.Paths {
	return textfile.Paths{
		Users:      cfg.Path(cfg.UsersFile),
		Candidates: cfg.Path(cfg.CandidatesFile),
		Election:   cfg.Path(cfg.ElectionFile),
	}
}

func openTextStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.SnapshotStore, error) {
	return textfile.NewStore(TextPaths(cfg.Data), logger), nil
}

func openSQLiteStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.SnapshotStore, error) {
	sc := cfg.Storage.SQLite
	dbCfg := sqlite.DefaultConfig(sc.Path)
	if sc.JournalMode != "" {
		dbCfg.JournalMode = sc.JournalMode
	}
	if sc.BusyTimeout > 0 {
		dbCfg.BusyTimeout = sc.BusyTimeout
	}
	if sc.SynchronousMode != "" {
		dbCfg.SynchronousMode = sc.SynchronousMode
	}

	db, err := sqlite.NewDB(ctx, dbCfg, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return sqlite.NewSnapshotStore(db), nil
}

func openPostgresStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.SnapshotStore, error) {
	db, err := postgres.NewDB(ctx, cfg.Storage.Postgres, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate postgres database: %w", err)
	}
	return postgres.NewSnapshotStore(db), nil
}

// NewLocker builds the configured write lock. The returned closer releases
// any connection the locker holds. shared reports whether other processes
// may write the same store, in which case state is reloaded under the lock.
func NewLocker(ctx context.Context, cfg config.LockConfig) (locker lock.Locker, closer func() error, shared bool, err error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.LockNone:
		return lock.NewNoOpLocker(), noop, false, nil

	case config.LockRedis:
		client, err := lock.NewRedisClient(ctx, lock.RedisOptions{
			Addr:        cfg.Redis.Addr(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return nil, nil, false, err
		}
		return lock.NewRedisLocker(client, "ballotbox:"), client.Close, true, nil

	default:
		return lock.NewMemoryLocker(), noop, false, nil
	}
}

// lockOptions converts the lock settings.
func lockOptions(cfg config.LockConfig) lock.Options {
	opts := lock.Options{TTL: cfg.TTL, Retries: cfg.Retries, RetryDelay: cfg.RetryDelay}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	return opts
}
