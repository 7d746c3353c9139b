// Package repository defines data access interfaces for ballotbox.
// The Directory is the in-memory source of truth during a session; a
// SnapshotStore loads and saves the whole state at once (text files, SQLite
// or PostgreSQL).
package repository

import (
	"context"

	"github.com/prn-tf/ballotbox/internal/domain"
)

// =============================================================================
// Snapshot
// =============================================================================

// Snapshot is the complete persisted state.
type Snapshot struct {
	Users      []domain.User
	Candidates []domain.Candidate
	Election   domain.ElectionConfig

	// The Loaded flags report whether prior state existed for each part.
	// A missing file or an empty table leaves the flag false.
	UsersLoaded      bool
	CandidatesLoaded bool
	ElectionLoaded   bool
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Users = append([]domain.User(nil), s.Users...)
	out.Candidates = append([]domain.Candidate(nil), s.Candidates...)
	return &out
}

// =============================================================================
// Snapshot Store
// =============================================================================

// SnapshotStore persists whole snapshots. Every Save is a full overwrite.
type SnapshotStore interface {
	// Load reads the persisted state. Absent state is not an error; it is
	// reported through the Loaded flags.
	Load(ctx context.Context) (*Snapshot, error)

	// Save overwrites the persisted state with snap.
	Save(ctx context.Context, snap *Snapshot) error

	// Close releases the store's resources.
	Close() error
}

// =============================================================================
// Directory
// =============================================================================

// Tx exposes the directory contents to a mutation function. Changes made
// through a Tx are applied only when the function returns nil.
type Tx struct {
	Users      []domain.User
	Candidates []domain.Candidate
	Election   domain.ElectionConfig
}

// User returns a pointer to the user at index i, or nil when out of range.
func (tx *Tx) User(i int) *domain.User {
	if i < 0 || i >= len(tx.Users) {
		return nil
	}
	return &tx.Users[i]
}

// Candidate returns a pointer to the candidate with the given 1-based id,
// or nil when out of range.
func (tx *Tx) Candidate(id int) *domain.Candidate {
	if id < 1 || id > len(tx.Candidates) {
		return nil
	}
	return &tx.Candidates[id-1]
}

// Directory holds users, candidates and the election window in memory.
// Accessors return copies.
type Directory interface {
	// FindUserByIdentifier returns the index of the user with the given NID.
	FindUserByIdentifier(nid string) (int, bool)

	// User returns the user at index i.
	User(i int) (domain.User, bool)

	// Users returns all users.
	Users() []domain.User

	// UserCount returns the number of users.
	UserCount() int

	// AddUser appends a user and returns its index.
	AddUser(u domain.User) (int, error)

	// Candidate returns the candidate with the given 1-based id.
	Candidate(id int) (domain.Candidate, bool)

	// Candidates returns the roster in id order.
	Candidates() []domain.Candidate

	// AddCandidate appends a candidate, assigning id N+1 and zero votes.
	AddCandidate(c domain.Candidate) (domain.Candidate, error)

	// RemoveCandidate removes the candidate with the given id and renumbers
	// the remaining candidates to 1..N-1.
	RemoveCandidate(id int) (domain.Candidate, error)

	// Election returns the election window.
	Election() domain.ElectionConfig

	// SetElection replaces the election window.
	SetElection(cfg domain.ElectionConfig)

	// Update runs fn with exclusive access. Nothing fn changes is kept
	// unless it returns nil.
	Update(fn func(tx *Tx) error) error

	// Snapshot returns a copy of the current state.
	Snapshot() *Snapshot

	// Replace swaps in the contents of snap.
	Replace(snap *Snapshot)
}
