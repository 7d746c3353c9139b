package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/repository"
)

// snapshotStore implements repository.SnapshotStore for SQLite.
type snapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a SQLite snapshot store. The schema must already
// be migrated.
func NewSnapshotStore(db *DB) repository.SnapshotStore {
	return &snapshotStore{db: db}
}

// Load reads the whole state. Before the first Save every Loaded flag is false.
func (s *snapshotStore) Load(ctx context.Context) (*repository.Snapshot, error) {
	snap := &repository.Snapshot{}

	var savedAt string
	err := s.db.db.QueryRowContext(ctx, `SELECT saved_at FROM snapshot_meta WHERE singleton = 1`).Scan(&savedAt)
	switch {
	case isNoRows(err):
		return snap, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}

	if snap.Users, err = s.loadUsers(ctx); err != nil {
		return nil, err
	}
	if snap.Candidates, err = s.loadCandidates(ctx); err != nil {
		return nil, err
	}
	snap.UsersLoaded = true
	snap.CandidatesLoaded = true

	var start, end int64
	err = s.db.db.QueryRowContext(ctx, `SELECT start_time, end_time FROM election WHERE singleton = 1`).Scan(&start, &end)
	switch {
	case isNoRows(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read election: %w", err)
	default:
		snap.Election = domain.ElectionConfig{Start: fromUnix(start), End: fromUnix(end)}
		snap.ElectionLoaded = true
	}

	s.db.logger.Debug().Str("saved_at", savedAt).Int("users", len(snap.Users)).Msg("snapshot loaded")

	return snap, nil
}

func (s *snapshotStore) loadUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT full_name, nid, password_hash, has_voted, vote_time
		FROM users
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var (
			u        domain.User
			hasVoted int
			voteTime int64
		)
		if err := rows.Scan(&u.FullName, &u.NID, &u.PasswordHash, &hasVoted, &voteTime); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.HasVoted = hasVoted != 0
		u.VoteTime = fromUnix(voteTime)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (s *snapshotStore) loadCandidates(ctx context.Context) ([]domain.Candidate, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT id, name, party, education, age, manifesto, votes
		FROM candidates
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	candidates := []domain.Candidate{}
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Party, &c.Education, &c.Age, &c.Manifesto, &c.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return candidates, nil
}

// Save replaces every row in one transaction.
func (s *snapshotStore) Save(ctx context.Context, snap *repository.Snapshot) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM users`,
			`DELETE FROM candidates`,
			`DELETE FROM election`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to clear table: %w", err)
			}
		}

		userStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO users (position, full_name, nid, password_hash, has_voted, vote_time)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare user insert: %w", err)
		}
		defer userStmt.Close()

		for i, u := range snap.Users {
			if _, err := userStmt.ExecContext(ctx, i, u.FullName, u.NID, u.PasswordHash, boolToInt(u.HasVoted), toUnix(u.VoteTime)); err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: NID '%s'", domain.ErrUserAlreadyExists, u.NID)
				}
				return fmt.Errorf("failed to insert user: %w", err)
			}
		}

		candStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO candidates (id, name, party, education, age, manifesto, votes)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare candidate insert: %w", err)
		}
		defer candStmt.Close()

		for i, c := range snap.Candidates {
			if _, err := candStmt.ExecContext(ctx, i+1, c.Name, c.Party, c.Education, c.Age, c.Manifesto, c.Votes); err != nil {
				return fmt.Errorf("failed to insert candidate: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO election (singleton, start_time, end_time) VALUES (1, ?, ?)`,
			toUnix(snap.Election.Start), toUnix(snap.Election.End),
		); err != nil {
			return fmt.Errorf("failed to insert election: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_meta (singleton, saved_at) VALUES (1, ?)
			ON CONFLICT (singleton) DO UPDATE SET saved_at = excluded.saved_at
		`, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to update snapshot metadata: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *snapshotStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}
