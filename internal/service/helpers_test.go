package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/ballotbox/internal/activity"
	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/lock"
	"github.com/prn-tf/ballotbox/internal/metrics"
	"github.com/prn-tf/ballotbox/internal/repository"
	"github.com/prn-tf/ballotbox/internal/repository/memory"
	"github.com/prn-tf/ballotbox/internal/storage"
)

// testNow is a Sunday noon, inside the seeded election window.
var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const testPassword = "Abcdef12"

// fakeStore keeps the last saved snapshot in memory.
type fakeStore struct {
	mu      sync.Mutex
	snap    *repository.Snapshot
	saves   int
	saveErr error
}

func (s *fakeStore) Load(ctx context.Context) (*repository.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return &repository.Snapshot{}, nil
	}
	return s.snap.Clone(), nil
}

func (s *fakeStore) Save(ctx context.Context, snap *repository.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap = snap.Clone()
	return nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) saved() *repository.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// MockSnapshotStore is a mock implementation of repository.SnapshotStore.
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) Load(ctx context.Context) (*repository.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Snapshot), args.Error(1)
}

func (m *MockSnapshotStore) Save(ctx context.Context, snap *repository.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *MockSnapshotStore) Close() error {
	return m.Called().Error(0)
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	clock     *fakeClock
	store     *fakeStore
	activity  *activity.Memory
	metrics   *metrics.Metrics
	state     *StateManager
	users     *UserService
	sessions  *SessionService
	voting    *VotingService
	admin     *AdminService
	election  *ElectionService
	artifacts string
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, &fakeStore{}, AdminConfig{Passphrase: "admin123"})
}

func newFixtureWith(t *testing.T, store *fakeStore, adminCfg AdminConfig) *fixture {
	t.Helper()

	f := &fixture{
		clock:     &fakeClock{now: testNow},
		store:     store,
		activity:  &activity.Memory{},
		metrics:   metrics.New(),
		artifacts: t.TempDir(),
	}
	logger := zerolog.Nop()

	f.state = NewStateManager(StateConfig{
		Directory: memory.NewDirectory(memory.DefaultLimits()),
		Store:     store,
		Locker:    lock.NewMemoryLocker(),
		Activity:  f.activity,
		Metrics:   f.metrics,
		Clock:     f.clock.Now,
		Logger:    logger,
	})
	_, err := f.state.Load(context.Background(), Seed{Candidates: domain.DefaultCandidates()})
	require.NoError(t, err)

	sinks := storage.NewMulti(storage.NewFilesystemBackend(f.artifacts, logger))

	f.users = NewUserService(f.state, bcrypt.MinCost, logger)
	f.sessions = NewSessionService(f.state, DefaultSessionTimeout, logger)
	f.voting = NewVotingService(f.state, f.sessions, logger)
	f.admin = NewAdminService(f.state, sinks, adminCfg, logger)
	f.election = NewElectionService(f.state, f.sessions, logger)
	return f
}

func (f *fixture) register(t *testing.T, name, nid string) domain.User {
	t.Helper()
	out, err := f.users.Register(context.Background(), RegisterInput{FullName: name, NID: nid, Password: testPassword})
	require.NoError(t, err)
	return out.User
}

func (f *fixture) login(t *testing.T, name, nid string) Session {
	t.Helper()
	f.register(t, name, nid)
	user, err := f.users.Authenticate(context.Background(), nid, testPassword)
	require.NoError(t, err)
	return f.sessions.Create(*user, f.state.Now())
}
