// Package textfile implements repository.SnapshotStore on the three flat
// record files: users, candidates and the election window.
package textfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/prn-tf/ballotbox/internal/codec"
	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/repository"
)

// Paths names the three state files.
type Paths struct {
	Users      string
	Candidates string
	Election   string
}

// Store reads and writes snapshots as text files.
type Store struct {
	paths  Paths
	logger zerolog.Logger
}

// Ensure Store implements repository.SnapshotStore
var _ repository.SnapshotStore = (*Store)(nil)

// NewStore creates a text file store.
func NewStore(paths Paths, logger zerolog.Logger) *Store {
	return &Store{
		paths:  paths,
		logger: logger.With().Str("component", "textfile_store").Logger(),
	}
}

// Paths returns the configured file paths.
func (s *Store) Paths() Paths {
	return s.paths
}

// Load reads all three files. A missing file leaves its part empty and its
// Loaded flag false.
func (s *Store) Load(ctx context.Context) (*repository.Snapshot, error) {
	snap := &repository.Snapshot{}

	var err error
	snap.UsersLoaded, err = readFile(ctx, s.paths.Users, func(r io.Reader) error {
		snap.Users, err = codec.DecodeUsers(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load users from %s: %w", s.paths.Users, err)
	}

	snap.CandidatesLoaded, err = readFile(ctx, s.paths.Candidates, func(r io.Reader) error {
		snap.Candidates, err = codec.DecodeCandidates(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load candidates from %s: %w", s.paths.Candidates, err)
	}

	snap.ElectionLoaded, err = readFile(ctx, s.paths.Election, func(r io.Reader) error {
		snap.Election, err = codec.DecodeElection(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load election from %s: %w", s.paths.Election, err)
	}

	s.logger.Debug().
		Int("users", len(snap.Users)).
		Int("candidates", len(snap.Candidates)).
		Bool("election_loaded", snap.ElectionLoaded).
		Msg("snapshot loaded")

	return snap, nil
}

// Save overwrites all three files. Each file is replaced atomically; a failure
// on one file does not stop the others from being written.
func (s *Store) Save(ctx context.Context, snap *repository.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var errs []error

	var buf bytes.Buffer
	if err := codec.EncodeUsers(&buf, snap.Users); err == nil {
		errs = append(errs, writeFileAtomic(s.paths.Users, buf.Bytes()))
	} else {
		errs = append(errs, err)
	}

	buf.Reset()
	if err := codec.EncodeCandidates(&buf, snap.Candidates); err == nil {
		errs = append(errs, writeFileAtomic(s.paths.Candidates, buf.Bytes()))
	} else {
		errs = append(errs, err)
	}

	buf.Reset()
	if err := codec.EncodeElection(&buf, snap.Election); err == nil {
		errs = append(errs, writeFileAtomic(s.paths.Election, buf.Bytes()))
	} else {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func readFile(ctx context.Context, path string, decode func(io.Reader) error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := decode(f); err != nil {
		return false, err
	}
	return true, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
