package textfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/repository"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return NewStore(Paths{
		Users:      filepath.Join(dir, "users.txt"),
		Candidates: filepath.Join(dir, "candidates.txt"),
		Election:   filepath.Join(dir, "election_config.txt"),
	}, zerolog.Nop()), dir
}

func TestStore_LoadMissingFiles(t *testing.T) {
	store, _ := newTestStore(t)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.UsersLoaded)
	assert.False(t, snap.CandidatesLoaded)
	assert.False(t, snap.ElectionLoaded)
	assert.Empty(t, snap.Users)
	assert.Empty(t, snap.Candidates)
	assert.True(t, snap.Election.Start.IsZero())
}

func TestStore_SaveLoad(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	want := &repository.Snapshot{
		Users: []domain.User{
			{FullName: "Ada", NID: "1234567890", PasswordHash: "$2a$04$h", HasVoted: true, VoteTime: time.Unix(1700000000, 0).UTC()},
		},
		Candidates: domain.DefaultCandidates(),
		Election: domain.ElectionConfig{
			Start: time.Unix(1700000000, 0).UTC(),
			End:   time.Unix(1700604800, 0).UTC(),
		},
	}
	want.Candidates[0].Votes = 1

	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.UsersLoaded)
	assert.True(t, got.CandidatesLoaded)
	assert.True(t, got.ElectionLoaded)
	assert.Equal(t, want.Users, got.Users)
	assert.Equal(t, want.Candidates, got.Candidates)
	assert.Equal(t, want.Election, got.Election)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "temp files must not be left behind")
}

func TestStore_SaveLoadLongestValidFields(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	longest := domain.Candidate{
		ID:        1,
		Name:      strings.Repeat("n", domain.MaxCandidateNameLength),
		Party:     strings.Repeat("p", domain.MaxPartyLength),
		Education: strings.Repeat("e", domain.MaxEducationLength),
		Age:       domain.MaxCandidateAge,
		Manifesto: strings.Repeat("m", domain.MaxManifestoLength),
	}
	require.NoError(t, longest.Validate())

	tooLong := longest
	tooLong.Manifesto = strings.Repeat("m", 2<<20)
	require.ErrorIs(t, tooLong.Validate(), domain.ErrFieldTooLong)

	require.NoError(t, store.Save(ctx, &repository.Snapshot{
		Candidates: []domain.Candidate{longest},
		Election: domain.ElectionConfig{
			Start: time.Unix(1700000000, 0).UTC(),
			End:   time.Unix(1700604800, 0).UTC(),
		},
	}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Candidate{longest}, got.Candidates)
}

func TestStore_LoadCorrupt(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Paths().Users, []byte("garbage\n"), 0o644))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCorruptRecord)
}

func TestStore_SaveFailureReported(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	store := NewStore(Paths{
		Users:      filepath.Join(blocker, "users.txt"),
		Candidates: filepath.Join(dir, "candidates.txt"),
		Election:   filepath.Join(dir, "election_config.txt"),
	}, zerolog.Nop())

	err := store.Save(context.Background(), &repository.Snapshot{Candidates: domain.DefaultCandidates()})
	assert.ErrorIs(t, err, domain.ErrPersistence)

	_, statErr := os.Stat(filepath.Join(dir, "candidates.txt"))
	assert.NoError(t, statErr, "other files are still written")
}
