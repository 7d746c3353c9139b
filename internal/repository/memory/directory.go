// Package memory provides the in-memory Directory used as the source of
// truth while the program runs.
package memory

import (
	"fmt"
	"sync"

	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/repository"
)

// Default collection limits.
const (
	DefaultMaxUsers      = 1000
	DefaultMaxCandidates = 10
)

// Limits bounds the directory collections.
type Limits struct {
	MaxUsers      int
	MaxCandidates int
}

// DefaultLimits returns the stock limits.
func DefaultLimits() Limits {
	return Limits{MaxUsers: DefaultMaxUsers, MaxCandidates: DefaultMaxCandidates}
}

// Directory is a mutex-protected implementation of repository.Directory.
type Directory struct {
	mu         sync.RWMutex
	limits     Limits
	users      []domain.User
	byNID      map[string]int
	candidates []domain.Candidate
	election   domain.ElectionConfig
}

// Ensure Directory implements repository.Directory
var _ repository.Directory = (*Directory)(nil)

// NewDirectory creates an empty directory.
func NewDirectory(limits Limits) *Directory {
	if limits.MaxUsers <= 0 {
		limits.MaxUsers = DefaultMaxUsers
	}
	if limits.MaxCandidates <= 0 {
		limits.MaxCandidates = DefaultMaxCandidates
	}
	return &Directory{
		limits: limits,
		byNID:  make(map[string]int),
	}
}

// Limits returns the configured limits.
func (d *Directory) Limits() Limits {
	return d.limits
}

// =============================================================================
// Users
// =============================================================================

// FindUserByIdentifier returns the index of the user with the given NID.
func (d *Directory) FindUserByIdentifier(nid string) (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i, ok := d.byNID[nid]
	return i, ok
}

// User returns a copy of the user at index i.
func (d *Directory) User(i int) (domain.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if i < 0 || i >= len(d.users) {
		return domain.User{}, false
	}
	return d.users[i], true
}

// Users returns a copy of all users.
func (d *Directory) Users() []domain.User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]domain.User(nil), d.users...)
}

// UserCount returns the number of users.
func (d *Directory) UserCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.users)
}

// AddUser appends u and returns its index.
func (d *Directory) AddUser(u domain.User) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byNID[u.NID]; exists {
		return -1, fmt.Errorf("%w: NID '%s'", domain.ErrUserAlreadyExists, u.NID)
	}
	if len(d.users) >= d.limits.MaxUsers {
		return -1, fmt.Errorf("%w: limit is %d", domain.ErrUserCapacity, d.limits.MaxUsers)
	}

	d.users = append(d.users, u)
	d.byNID[u.NID] = len(d.users) - 1
	return len(d.users) - 1, nil
}

// =============================================================================
// Candidates
// =============================================================================

// Candidate returns a copy of the candidate with the given id.
func (d *Directory) Candidate(id int) (domain.Candidate, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if id < 1 || id > len(d.candidates) {
		return domain.Candidate{}, false
	}
	return d.candidates[id-1], true
}

// Candidates returns a copy of the roster.
func (d *Directory) Candidates() []domain.Candidate {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]domain.Candidate(nil), d.candidates...)
}

// AddCandidate appends c with id N+1 and zero votes.
func (d *Directory) AddCandidate(c domain.Candidate) (domain.Candidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.candidates) >= d.limits.MaxCandidates {
		return domain.Candidate{}, fmt.Errorf("%w: limit is %d", domain.ErrCandidateCapacity, d.limits.MaxCandidates)
	}

	c.ID = len(d.candidates) + 1
	c.Votes = 0
	d.candidates = append(d.candidates, c)
	return c, nil
}

// RemoveCandidate removes the candidate with the given id and renumbers the rest.
func (d *Directory) RemoveCandidate(id int) (domain.Candidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id < 1 || id > len(d.candidates) {
		return domain.Candidate{}, fmt.Errorf("%w: id %d", domain.ErrInvalidCandidate, id)
	}

	removed := d.candidates[id-1]
	d.candidates = append(d.candidates[:id-1], d.candidates[id:]...)
	renumber(d.candidates)
	return removed, nil
}

// =============================================================================
// Election
// =============================================================================

// Election returns the election window.
func (d *Directory) Election() domain.ElectionConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.election
}

// SetElection replaces the election window.
func (d *Directory) SetElection(cfg domain.ElectionConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.election = cfg
}

// =============================================================================
// Bulk operations
// =============================================================================

// Update runs fn against a working copy and commits it only when fn returns nil.
// fn must not add, remove or reorder users.
func (d *Directory) Update(fn func(tx *repository.Tx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx := &repository.Tx{
		Users:      append([]domain.User(nil), d.users...),
		Candidates: append([]domain.Candidate(nil), d.candidates...),
		Election:   d.election,
	}
	if err := fn(tx); err != nil {
		return err
	}

	if len(tx.Users) != len(d.users) {
		return fmt.Errorf("directory update changed the user count from %d to %d", len(d.users), len(tx.Users))
	}
	for i := range tx.Users {
		if tx.Users[i].NID != d.users[i].NID {
			return fmt.Errorf("directory update changed the NID at index %d", i)
		}
	}

	renumber(tx.Candidates)
	d.users = tx.Users
	d.candidates = tx.Candidates
	d.election = tx.Election
	return nil
}

// Snapshot returns a copy of the current state with all Loaded flags set.
func (d *Directory) Snapshot() *repository.Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return &repository.Snapshot{
		Users:            append([]domain.User(nil), d.users...),
		Candidates:       append([]domain.Candidate(nil), d.candidates...),
		Election:         d.election,
		UsersLoaded:      true,
		CandidatesLoaded: true,
		ElectionLoaded:   true,
	}
}

// Replace swaps in the contents of snap. Candidate ids are reset to their
// positions and the NID index is rebuilt; a later duplicate NID keeps the
// first occurrence reachable by lookup.
func (d *Directory) Replace(snap *repository.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if snap == nil {
		snap = &repository.Snapshot{}
	}

	d.users = append([]domain.User(nil), snap.Users...)
	d.candidates = append([]domain.Candidate(nil), snap.Candidates...)
	renumber(d.candidates)
	d.election = snap.Election

	d.byNID = make(map[string]int, len(d.users))
	for i, u := range d.users {
		if _, dup := d.byNID[u.NID]; !dup {
			d.byNID[u.NID] = i
		}
	}
}

func renumber(candidates []domain.Candidate) {
	for i := range candidates {
		candidates[i].ID = i + 1
	}
}
