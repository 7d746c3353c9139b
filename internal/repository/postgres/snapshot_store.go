package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/repository"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// snapshotStore implements repository.SnapshotStore.
type snapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a PostgreSQL snapshot store.
func NewSnapshotStore(db *DB) repository.SnapshotStore {
	return &snapshotStore{db: db}
}

// Load reads the whole state. Before the first Save every Loaded flag is false.
func (s *snapshotStore) Load(ctx context.Context) (*repository.Snapshot, error) {
	snap := &repository.Snapshot{}

	var savedAt time.Time
	err := s.db.Pool.QueryRow(ctx, `SELECT saved_at FROM snapshot_meta WHERE singleton = 1`).Scan(&savedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT full_name, nid, password_hash, has_voted, vote_time
		FROM users
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	snap.Users, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.User, error) {
		var (
			u        domain.User
			voteTime int64
		)
		err := row.Scan(&u.FullName, &u.NID, &u.PasswordHash, &u.HasVoted, &voteTime)
		u.VoteTime = fromUnix(voteTime)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}

	rows, err = s.db.Pool.Query(ctx, `
		SELECT id, name, party, education, age, manifesto, votes
		FROM candidates
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	snap.Candidates, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Candidate, error) {
		var c domain.Candidate
		err := row.Scan(&c.ID, &c.Name, &c.Party, &c.Education, &c.Age, &c.Manifesto, &c.Votes)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan candidates: %w", err)
	}
	snap.UsersLoaded = true
	snap.CandidatesLoaded = true

	var start, end int64
	err = s.db.Pool.QueryRow(ctx, `SELECT start_time, end_time FROM election WHERE singleton = 1`).Scan(&start, &end)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to read election: %w", err)
	default:
		snap.Election = domain.ElectionConfig{Start: fromUnix(start), End: fromUnix(end)}
		snap.ElectionLoaded = true
	}

	s.db.logger.Debug().Time("saved_at", savedAt).Int("users", len(snap.Users)).Msg("snapshot loaded")

	return snap, nil
}

// Save replaces every row in one serializable transaction.
func (s *snapshotStore) Save(ctx context.Context, snap *repository.Snapshot) error {
	err := s.db.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE users, candidates, election`); err != nil {
			return fmt.Errorf("failed to clear tables: %w", err)
		}

		userRows := make([][]any, len(snap.Users))
		for i, u := range snap.Users {
			userRows[i] = []any{i, u.FullName, u.NID, u.PasswordHash, u.HasVoted, toUnix(u.VoteTime)}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"users"},
			[]string{"position", "full_name", "nid", "password_hash", "has_voted", "vote_time"},
			pgx.CopyFromRows(userRows),
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: %s", domain.ErrUserAlreadyExists, pgErr.Detail)
			}
			return fmt.Errorf("failed to copy users: %w", err)
		}

		batch := &pgx.Batch{}
		for i, c := range snap.Candidates {
			batch.Queue(`
				INSERT INTO candidates (id, name, party, education, age, manifesto, votes)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, i+1, c.Name, c.Party, c.Education, c.Age, c.Manifesto, c.Votes)
		}
		batch.Queue(`INSERT INTO election (singleton, start_time, end_time) VALUES (1, $1, $2)`,
			toUnix(snap.Election.Start), toUnix(snap.Election.End))
		batch.Queue(`
			INSERT INTO snapshot_meta (singleton, saved_at) VALUES (1, $1)
			ON CONFLICT (singleton) DO UPDATE SET saved_at = EXCLUDED.saved_at
		`, time.Now().UTC())

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *snapshotStore) Close() error {
	return s.db.Close()
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
