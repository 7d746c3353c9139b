// This file contains the factory that opens a SnapshotStore for the
// configured storage driver.
package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/prn-tf/ballotbox/internal/config"
)

// Opener opens a store for one driver.
type Opener func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (SnapshotStore, error)

// Factory creates snapshot stores based on configuration. Store packages
// import this one, so openers are registered by the caller rather than here.
type Factory struct {
	cfg     *config.Config
	logger  zerolog.Logger
	openers map[string]Opener
}

// NewFactory creates a new store factory.
func NewFactory(cfg *config.Config, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:     cfg,
		logger:  logger,
		openers: make(map[string]Opener),
	}
}

// Register binds a driver name to an opener, replacing any earlier binding.
func (f *Factory) Register(driver string, open Opener) *Factory {
	f.openers[driver] = open
	return f
}

// Driver returns the configured storage driver.
func (f *Factory) Driver() string {
	return f.cfg.Storage.Driver
}

// Drivers returns the registered driver names in sorted order.
func (f *Factory) Drivers() []string {
	out := make([]string, 0, len(f.openers))
	for d := range f.openers {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Open opens the store for the configured driver.
func (f *Factory) Open(ctx context.Context) (SnapshotStore, error) {
	return f.OpenDriver(ctx, f.Driver())
}

// OpenDriver opens the store for an explicit driver.
func (f *Factory) OpenDriver(ctx context.Context, driver string) (SnapshotStore, error) {
	open, ok := f.openers[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownDriver, driver, f.Drivers())
	}

	store, err := open(ctx, f.cfg, f.logger.With().Str("driver", driver).Logger())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}

	f.logger.Debug().Str("driver", driver).Msg("snapshot store opened")
	return store, nil
}
