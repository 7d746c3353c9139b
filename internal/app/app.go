// Package app wires configuration, storage, locking and services into a
// running ballotbox instance.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/ballotbox/internal/activity"
	"github.com/prn-tf/ballotbox/internal/codec"
	"github.com/prn-tf/ballotbox/internal/config"
	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/handler"
	"github.com/prn-tf/ballotbox/internal/metrics"
	"github.com/prn-tf/ballotbox/internal/repository"
	"github.com/prn-tf/ballotbox/internal/repository/memory"
	"github.com/prn-tf/ballotbox/internal/service"
	"github.com/prn-tf/ballotbox/internal/storage"
)

// App is a fully wired ballotbox instance.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Store   repository.SnapshotStore

	State    *service.StateManager
	Users    *service.UserService
	Sessions *service.SessionService
	Voting   *service.VotingService
	Admin    *service.AdminService
	Election *service.ElectionService

	ops     *http.Server
	closers []func() error
}

// Options tweak New for tests and tools.
type Options struct {
	// Clock overrides the wall clock.
	Clock func() time.Time

	// Store overrides the configured snapshot store.
	Store repository.SnapshotStore
}

// New builds an App from cfg and loads the persisted state. A load failure
// is returned; callers treat it as fatal.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (_ *App, err error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	loc, err := cfg.Election.LoadLocation()
	if err != nil {
		return nil, err
	}

	a.Store = opts.Store
	if a.Store == nil {
		a.Store, err = NewStoreFactory(cfg, logger).Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
		}
	}
	a.closers = append(a.closers, a.Store.Close)

	locker, closeLocker, shared, err := NewLocker(ctx, cfg.Lock)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeLocker)

	sinks, err := newSinks(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a.State = service.NewStateManager(service.StateConfig{
		Directory: memory.NewDirectory(memory.Limits{
			MaxUsers:      cfg.Limits.MaxUsers,
			MaxCandidates: cfg.Limits.MaxCandidates,
		}),
		Store:            a.Store,
		Locker:           locker,
		LockOptions:      lockOptions(cfg.Lock),
		Activity:         activity.NewFileLog(cfg.Data.Path(cfg.Data.ActivityFile)),
		Metrics:          a.Metrics,
		Clock:            opts.Clock,
		RefreshOnAcquire: shared,
		Logger:           logger,
	})

	a.Sessions = service.NewSessionService(a.State, cfg.Session.Timeout, logger)
	a.Users = service.NewUserService(a.State, cfg.Security.BcryptCost, logger)
	a.Voting = service.NewVotingService(a.State, a.Sessions, logger)
	a.Election = service.NewElectionService(a.State, a.Sessions, logger)
	a.Admin = service.NewAdminService(a.State, sinks, service.AdminConfig{
		Passphrase:           cfg.Election.AdminPassphrase,
		AllowRemoveWithVotes: cfg.Election.AllowRemoveWithVotes,
		ResultsFile:          cfg.Data.ResultsFile,
		Location:             loc,
	}, logger)

	seed := service.Seed{ElectionDays: cfg.Election.DefaultDurationDays}
	if cfg.Election.SeedCandidates {
		seed.Candidates = domain.DefaultCandidates()
	}
	if _, err := a.State.Load(ctx, seed); err != nil {
		if codec.IsCorrupt(err) {
			logger.Error().Err(err).Str("driver", cfg.Storage.Driver).
				Msg("stored election state is unreadable, repair or restore it from a backup")
		}
		return nil, fmt.Errorf("failed to load election state: %w", err)
	}

	return a, nil
}

// newSinks builds the artifact sinks: the backup directory always, S3 when
// enabled.
func newSinks(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storage.Multi, error) {
	backends := []storage.Backend{storage.NewFilesystemBackend(cfg.Backup.Dir, logger)}

	if s3cfg := cfg.Backup.S3; s3cfg.Enabled {
		s3, err := storage.NewS3Backend(ctx, storage.S3Options{
			Endpoint:        s3cfg.Endpoint,
			Region:          s3cfg.Region,
			Bucket:          s3cfg.Bucket,
			Prefix:          s3cfg.Prefix,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			UsePathStyle:    s3cfg.UsePathStyle,
		}, logger)
		if err != nil {
			return nil, err
		}
		backends = append(backends, s3)
	}

	return storage.NewMulti(backends...), nil
}

// StartOps starts the ops HTTP endpoint when metrics are enabled.
func (a *App) StartOps() {
	if !a.Config.Metrics.Enabled {
		return
	}

	router := handler.NewRouter(handler.RouterConfig{
		Election:    a.Election,
		Metrics:     a.Metrics.Handler(),
		MetricsPath: a.Config.Metrics.Path,
		Logger:      a.Logger,
	})
	a.ops = &http.Server{
		Addr:              a.Config.Metrics.Addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.Logger.Info().Str("addr", a.ops.Addr).Msg("ops endpoint listening")
		if err := a.ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Msg("ops endpoint failed")
		}
	}()
}

// Shutdown performs the exit sequence: backup (when configured), a final
// save and the shutdown log entry. It then releases every resource.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if a.Config.Backup.OnExit {
		if _, err := a.Admin.CreateBackup(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("exit backup failed")
		}
	}

	if err := a.State.Persist(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("final save failed")
		errs = append(errs, err)
	}

	a.State.Record(activity.ActionSystemShutdown, nil)

	if a.ops != nil {
		if err := a.ops.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
