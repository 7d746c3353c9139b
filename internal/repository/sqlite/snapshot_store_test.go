package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/repository"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	cfg := DefaultConfig(filepath.Join(t.TempDir(), "ballotbox.db"))
	db, err := NewDB(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))
	v, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSnapshotStore_EmptyLoad(t *testing.T) {
	store := NewSnapshotStore(openTestDB(t))
	defer store.Close()

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.UsersLoaded)
	assert.False(t, snap.CandidatesLoaded)
	assert.False(t, snap.ElectionLoaded)
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	store := NewSnapshotStore(openTestDB(t))
	defer store.Close()
	ctx := context.Background()

	want := &repository.Snapshot{
		Users: []domain.User{
			{FullName: "Ada", NID: "1234567890", PasswordHash: "$2a$04$h", HasVoted: true, VoteTime: time.Unix(1700000000, 0).UTC()},
			{FullName: "Alan", NID: "1234567891", PasswordHash: "H12"},
		},
		Candidates: domain.DefaultCandidates(),
		Election: domain.ElectionConfig{
			Start: time.Unix(1700000000, 0).UTC(),
			End:   time.Unix(1700604800, 0).UTC(),
		},
	}
	want.Candidates[3].Votes = 1

	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.UsersLoaded)
	assert.True(t, got.CandidatesLoaded)
	assert.True(t, got.ElectionLoaded)
	assert.Equal(t, want.Users, got.Users)
	assert.Equal(t, want.Candidates, got.Candidates)
	assert.Equal(t, want.Election, got.Election)

	// A second save fully replaces the first.
	want.Users = want.Users[:1]
	want.Candidates = want.Candidates[:2]
	require.NoError(t, store.Save(ctx, want))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Users, 1)
	assert.Len(t, got.Candidates, 2)
}

func TestSnapshotStore_DuplicateNIDRollsBack(t *testing.T) {
	store := NewSnapshotStore(openTestDB(t))
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &repository.Snapshot{Candidates: domain.DefaultCandidates()}))

	err := store.Save(ctx, &repository.Snapshot{
		Users: []domain.User{
			{FullName: "A", NID: "1234567890", PasswordHash: "x"},
			{FullName: "B", NID: "1234567890", PasswordHash: "y"},
		},
	})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Candidates, 5)
	assert.Empty(t, got.Users)
}
