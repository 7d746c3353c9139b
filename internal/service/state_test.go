package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/ballotbox/internal/activity"
	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/lock"
	"github.com/prn-tf/ballotbox/internal/repository"
	"github.com/prn-tf/ballotbox/internal/repository/memory"
)

func newTestState(store repository.SnapshotStore, locker lock.Locker, refresh bool) *StateManager {
	return NewStateManager(StateConfig{
		Directory:        memory.NewDirectory(memory.DefaultLimits()),
		Store:            store,
		Locker:           locker,
		LockOptions:      lock.Options{TTL: time.Minute, Retries: 0, RetryDelay: time.Millisecond},
		Clock:            func() time.Time { return testNow },
		RefreshOnAcquire: refresh,
		Logger:           zerolog.Nop(),
	})
}

func TestStateManager_LoadSeedsDefaults(t *testing.T) {
	state := newTestState(&fakeStore{}, nil, false)

	_, err := state.Load(context.Background(), Seed{Candidates: domain.DefaultCandidates()})
	require.NoError(t, err)

	dir := state.Directory()
	assert.Len(t, dir.Candidates(), 5)
	assert.Equal(t, 0, dir.UserCount())
	assert.Equal(t, testNow, dir.Election().Start)
	assert.Equal(t, testNow.Add(7*24*time.Hour), dir.Election().End)
}

func TestStateManager_LoadKeepsStoredState(t *testing.T) {
	window := domain.ElectionConfig{Start: testNow.Add(-time.Hour), End: testNow.Add(time.Hour)}
	store := &fakeStore{snap: &repository.Snapshot{
		Users:            []domain.User{{FullName: "Ada", NID: "1234567890"}},
		Election:         window,
		UsersLoaded:      true,
		CandidatesLoaded: true,
		ElectionLoaded:   true,
	}}
	state := newTestState(store, nil, false)

	_, err := state.Load(context.Background(), Seed{Candidates: domain.DefaultCandidates(), ElectionDays: 3})
	require.NoError(t, err)

	dir := state.Directory()
	assert.Empty(t, dir.Candidates(), "an empty stored roster is not reseeded")
	assert.Equal(t, 1, dir.UserCount())
	assert.Equal(t, window, dir.Election())
}

func TestStateManager_LoadError(t *testing.T) {
	store := new(MockSnapshotStore)
	store.On("Load", mock.Anything).Return(nil, domain.ErrCorruptRecord)

	state := newTestState(store, nil, false)
	_, err := state.Load(context.Background(), Seed{})
	assert.ErrorIs(t, err, domain.ErrCorruptRecord)
}

func TestStateManager_MutateSaveFailureKeepsChange(t *testing.T) {
	store := new(MockSnapshotStore)
	store.On("Save", mock.Anything, mock.Anything).Return(domain.ErrPersistence)

	state := newTestState(store, lock.NewMemoryLocker(), false)
	persisted, err := state.Mutate(context.Background(), "register", func(dir repository.Directory) error {
		_, err := dir.AddUser(domain.NewUser("Ada", "1234567890", "x"))
		return err
	})

	require.NoError(t, err)
	assert.False(t, persisted)
	assert.Equal(t, 1, state.Directory().UserCount())
	store.AssertExpectations(t)
}

func TestStateManager_MutateErrorSkipsSave(t *testing.T) {
	store := new(MockSnapshotStore)
	state := newTestState(store, lock.NewMemoryLocker(), false)

	boom := errors.New("boom")
	_, err := state.Mutate(context.Background(), "noop", func(dir repository.Directory) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestStateManager_MutateBusy(t *testing.T) {
	locker := lock.NewMemoryLocker()
	acquired, err := locker.Acquire(context.Background(), lock.Keys.ElectionState(), time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	state := newTestState(&fakeStore{}, locker, false)
	called := false
	_, err = state.Mutate(context.Background(), "noop", func(dir repository.Directory) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrStateBusy)
	assert.False(t, called)
}

func TestStateManager_RefreshOnAcquire(t *testing.T) {
	store := &fakeStore{}
	state := newTestState(store, lock.NewMemoryLocker(), true)
	_, err := state.Load(context.Background(), Seed{Candidates: domain.DefaultCandidates()})
	require.NoError(t, err)

	// Another process registers a voter.
	other := state.Directory().Snapshot()
	other.Users = append(other.Users, domain.NewUser("Grace", "2222222222", "x"))
	require.NoError(t, store.Save(context.Background(), other))

	persisted, err := state.Mutate(context.Background(), "register", func(dir repository.Directory) error {
		_, err := dir.AddUser(domain.NewUser("Ada", "1111111111", "x"))
		return err
	})
	require.NoError(t, err)
	assert.True(t, persisted)

	saved := store.saved()
	require.Len(t, saved.Users, 2)
	assert.Equal(t, "2222222222", saved.Users[0].NID)
	assert.Equal(t, "1111111111", saved.Users[1].NID)
}

func TestStateManager_Record(t *testing.T) {
	log := &activity.Memory{}
	state := NewStateManager(StateConfig{
		Directory: memory.NewDirectory(memory.DefaultLimits()),
		Store:     &fakeStore{},
		Activity:  log,
		Clock:     func() time.Time { return testNow.Add(500 * time.Millisecond) },
		Logger:    zerolog.Nop(),
	})

	state.Record(activity.ActionSystemShutdown, nil)

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, testNow, entries[0].Time)
	assert.Nil(t, entries[0].Actor)
}
