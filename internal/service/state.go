package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/ballotbox/internal/activity"
	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/lock"
	"github.com/prn-tf/ballotbox/internal/metrics"
	"github.com/prn-tf/ballotbox/internal/repository"
)

// StateManager owns the directory and serialises every mutate-and-persist
// sequence behind the election state lock.
type StateManager struct {
	dir      repository.Directory
	store    repository.SnapshotStore
	locker   lock.Locker
	lockOpts lock.Options
	activity activity.Recorder
	metrics  *metrics.Metrics
	clock    func() time.Time
	refresh  bool
	logger   zerolog.Logger
}

// StateConfig contains the collaborators of a StateManager.
type StateConfig struct {
	Directory   repository.Directory
	Store       repository.SnapshotStore
	Locker      lock.Locker
	LockOptions lock.Options
	Activity    activity.Recorder
	Metrics     *metrics.Metrics
	Clock       func() time.Time

	// RefreshOnAcquire reloads the store after taking the lock so that
	// writes from other processes sharing the store are not lost.
	RefreshOnAcquire bool

	Logger zerolog.Logger
}

// NewStateManager creates a StateManager. Nil collaborators fall back to a
// no-op locker, a discarding activity log and the wall clock.
func NewStateManager(cfg StateConfig) *StateManager {
	m := &StateManager{
		dir:      cfg.Directory,
		store:    cfg.Store,
		locker:   cfg.Locker,
		lockOpts: cfg.LockOptions,
		activity: cfg.Activity,
		metrics:  cfg.Metrics,
		clock:    cfg.Clock,
		refresh:  cfg.RefreshOnAcquire,
		logger:   cfg.Logger.With().Str("service", "state").Logger(),
	}
	if m.locker == nil {
		m.locker = lock.NewNoOpLocker()
	}
	if m.lockOpts.TTL <= 0 {
		m.lockOpts = lock.DefaultOptions()
	}
	if m.activity == nil {
		m.activity = activity.Discard{}
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	return m
}

// Directory returns the in-memory state.
func (m *StateManager) Directory() repository.Directory {
	return m.dir
}

// Metrics returns the metrics sink, which may be nil.
func (m *StateManager) Metrics() *metrics.Metrics {
	return m.metrics
}

// Now returns the current instant at second precision, the resolution of
// every persisted timestamp.
func (m *StateManager) Now() time.Time {
	return m.clock().Truncate(time.Second)
}

// Seed holds the first-run defaults applied by Load.
type Seed struct {
	// Candidates replaces a missing roster. Nil leaves it empty.
	Candidates []domain.Candidate

	// ElectionDays sizes the window [now, now+days] used when no election
	// state exists. Zero means the default of 7 days.
	ElectionDays int
}

// Load reads the persisted snapshot into the directory and applies seed
// for every part that had no prior state.
func (m *StateManager) Load(ctx context.Context, seed Seed) (*repository.Snapshot, error) {
	snap, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	if !snap.CandidatesLoaded && seed.Candidates != nil {
		snap.Candidates = append([]domain.Candidate(nil), seed.Candidates...)
		m.logger.Info().Int("candidates", len(snap.Candidates)).Msg("seeded default candidates")
	}
	if !snap.ElectionLoaded {
		days := seed.ElectionDays
		if days == 0 {
			days = domain.DefaultElectionDays
		}
		window, err := domain.NewElectionWindow(m.Now(), days)
		if err != nil {
			return nil, err
		}
		snap.Election = window
		m.logger.Info().Time("start", window.Start).Time("end", window.End).Msg("seeded election window")
	}

	m.dir.Replace(snap)
	m.metrics.SetSizes(m.dir.UserCount(), len(m.dir.Candidates()))

	m.logger.Info().
		Int("users", len(snap.Users)).
		Int("candidates", len(snap.Candidates)).
		Msg("state loaded")

	return snap, nil
}

// Mutate runs fn against the directory while holding the write lock and
// then saves a snapshot. The directory guarantees fn's changes are
// all-or-nothing. A failed save does not undo the mutation: it is logged,
// counted, and reported by persisted being false.
func (m *StateManager) Mutate(ctx context.Context, op string, fn func(dir repository.Directory) error) (persisted bool, err error) {
	applied := false
	err = lock.WithLock(ctx, m.locker, lock.Keys.ElectionState(), m.lockOpts, func(ctx context.Context) error {
		if m.refresh {
			if err := m.reload(ctx); err != nil {
				return err
			}
		}
		if err := fn(m.dir); err != nil {
			return err
		}
		applied = true
		persisted = m.save(ctx, op)
		return nil
	})

	switch {
	case err == nil:
		return persisted, nil
	case applied:
		// Only the release failed; the mutation stands.
		m.logger.Warn().Err(err).Str("operation", op).Msg("failed to release state lock")
		return persisted, nil
	case errors.Is(err, lock.ErrNotAcquired):
		return false, fmt.Errorf("%w: %v", ErrStateBusy, err)
	default:
		return false, err
	}
}

// Persist saves the current state under the write lock.
func (m *StateManager) Persist(ctx context.Context) error {
	return lock.WithLock(ctx, m.locker, lock.Keys.ElectionState(), m.lockOpts, func(ctx context.Context) error {
		if err := m.store.Save(ctx, m.dir.Snapshot()); err != nil {
			m.metrics.RecordPersistenceFailure("persist")
			return err
		}
		return nil
	})
}

// Record appends an activity entry. Failures are logged and counted only.
func (m *StateManager) Record(action string, actor *activity.Actor) {
	entry := activity.Entry{Time: m.Now(), Action: action, Actor: actor}
	if err := m.activity.Record(entry); err != nil {
		m.logger.Warn().Err(err).Str("action", action).Msg("failed to append activity log")
		m.metrics.RecordPersistenceFailure("activity_log")
	}
}

func (m *StateManager) save(ctx context.Context, op string) bool {
	start := time.Now()
	err := m.store.Save(ctx, m.dir.Snapshot())
	m.metrics.RecordSave(time.Since(start).Seconds())
	if err != nil {
		m.logger.Warn().Err(err).Str("operation", op).Msg("failed to persist state")
		m.metrics.RecordPersistenceFailure(op)
		return false
	}
	m.metrics.SetSizes(m.dir.UserCount(), len(m.dir.Candidates()))
	return true
}

// reload replaces the parts of the directory the store has state for.
func (m *StateManager) reload(ctx context.Context) error {
	stored, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: reload: %w", domain.ErrPersistence, err)
	}

	current := m.dir.Snapshot()
	if stored.UsersLoaded {
		current.Users = stored.Users
	}
	if stored.CandidatesLoaded {
		current.Candidates = stored.Candidates
	}
	if stored.ElectionLoaded {
		current.Election = stored.Election
	}
	m.dir.Replace(current)
	return nil
}
