package memory

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/repository"
)

func TestDirectory_AddUser(t *testing.T) {
	d := NewDirectory(Limits{MaxUsers: 2, MaxCandidates: 10})

	i, err := d.AddUser(domain.NewUser("A", "1234567890", "h"))
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	_, err = d.AddUser(domain.NewUser("A again", "1234567890", "h"))
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	_, err = d.AddUser(domain.NewUser("B", "1234567891", "h"))
	require.NoError(t, err)

	_, err = d.AddUser(domain.NewUser("C", "1234567892", "h"))
	assert.ErrorIs(t, err, domain.ErrUserCapacity)
	assert.Equal(t, 2, d.UserCount())

	idx, ok := d.FindUserByIdentifier("1234567891")
	require.True(t, ok)
	u, ok := d.User(idx)
	require.True(t, ok)
	assert.Equal(t, "B", u.FullName)

	_, ok = d.FindUserByIdentifier("0000000000")
	assert.False(t, ok)
	_, ok = d.User(5)
	assert.False(t, ok)
}

func TestDirectory_AddCandidate(t *testing.T) {
	d := NewDirectory(Limits{MaxUsers: 10, MaxCandidates: 2})

	c, err := d.AddCandidate(domain.Candidate{ID: 99, Name: "A", Party: "P", Age: 30, Votes: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)
	assert.Zero(t, c.Votes)

	c, err = d.AddCandidate(domain.Candidate{Name: "B", Party: "P", Age: 30})
	require.NoError(t, err)
	assert.Equal(t, 2, c.ID)

	_, err = d.AddCandidate(domain.Candidate{Name: "C", Party: "P", Age: 30})
	assert.ErrorIs(t, err, domain.ErrCandidateCapacity)
}

func TestDirectory_RemoveCandidate(t *testing.T) {
	d := NewDirectory(DefaultLimits())
	for _, name := range []string{"A", "B", "C"} {
		_, err := d.AddCandidate(domain.Candidate{Name: name, Party: "P", Age: 40})
		require.NoError(t, err)
	}

	removed, err := d.RemoveCandidate(2)
	require.NoError(t, err)
	assert.Equal(t, "B", removed.Name)

	got := d.Candidates()
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, "C", got[1].Name)
	assert.Equal(t, 2, got[1].ID)

	for _, id := range []int{0, 3, -1} {
		_, err := d.RemoveCandidate(id)
		assert.ErrorIs(t, err, domain.ErrInvalidCandidate, "id %d", id)
	}
}

func TestDirectory_AccessorsReturnCopies(t *testing.T) {
	d := NewDirectory(DefaultLimits())
	_, err := d.AddUser(domain.NewUser("A", "1234567890", "h"))
	require.NoError(t, err)
	_, err = d.AddCandidate(domain.Candidate{Name: "A", Party: "P", Age: 40})
	require.NoError(t, err)

	users := d.Users()
	users[0].HasVoted = true
	cands := d.Candidates()
	cands[0].Votes = 100

	u, _ := d.User(0)
	assert.False(t, u.HasVoted)
	c, _ := d.Candidate(1)
	assert.Zero(t, c.Votes)
}

func TestDirectory_Update(t *testing.T) {
	d := NewDirectory(DefaultLimits())
	_, err := d.AddUser(domain.NewUser("A", "1234567890", "h"))
	require.NoError(t, err)
	_, err = d.AddCandidate(domain.Candidate{Name: "A", Party: "P", Age: 40})
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()

	t.Run("commits on success", func(t *testing.T) {
		err := d.Update(func(tx *repository.Tx) error {
			tx.Candidate(1).Votes++
			tx.User(0).RecordVote(now)
			return nil
		})
		require.NoError(t, err)

		u, _ := d.User(0)
		c, _ := d.Candidate(1)
		assert.True(t, u.HasVoted)
		assert.Equal(t, now, u.VoteTime)
		assert.Equal(t, 1, c.Votes)
	})

	t.Run("discards on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := d.Update(func(tx *repository.Tx) error {
			tx.Candidate(1).Votes = 50
			tx.User(0).ClearVote()
			return boom
		})
		assert.ErrorIs(t, err, boom)

		u, _ := d.User(0)
		c, _ := d.Candidate(1)
		assert.True(t, u.HasVoted)
		assert.Equal(t, 1, c.Votes)
	})

	t.Run("rejects user count change", func(t *testing.T) {
		err := d.Update(func(tx *repository.Tx) error {
			tx.Users = append(tx.Users, domain.NewUser("X", "9999999999", "h"))
			return nil
		})
		assert.Error(t, err)
		assert.Equal(t, 1, d.UserCount())
	})

	t.Run("out of range accessors are nil", func(t *testing.T) {
		_ = d.Update(func(tx *repository.Tx) error {
			assert.Nil(t, tx.User(1))
			assert.Nil(t, tx.Candidate(0))
			assert.Nil(t, tx.Candidate(2))
			return nil
		})
	})
}

func TestDirectory_SnapshotReplace(t *testing.T) {
	src := NewDirectory(DefaultLimits())
	for i := 0; i < 3; i++ {
		_, err := src.AddUser(domain.NewUser(fmt.Sprintf("U%d", i), fmt.Sprintf("123456789%d", i), "h"))
		require.NoError(t, err)
	}
	for _, c := range domain.DefaultCandidates() {
		_, err := src.AddCandidate(c)
		require.NoError(t, err)
	}
	window := domain.ElectionConfig{Start: time.Unix(100, 0).UTC(), End: time.Unix(200, 0).UTC()}
	src.SetElection(window)

	snap := src.Snapshot()
	assert.True(t, snap.UsersLoaded)

	dst := NewDirectory(DefaultLimits())
	snap.Candidates[0].ID = 42
	dst.Replace(snap)

	assert.Equal(t, src.Users(), dst.Users())
	assert.Equal(t, src.Candidates(), dst.Candidates())
	assert.Equal(t, window, dst.Election())

	idx, ok := dst.FindUserByIdentifier("1234567892")
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	dst.Replace(nil)
	assert.Zero(t, dst.UserCount())
	assert.Empty(t, dst.Candidates())
}
