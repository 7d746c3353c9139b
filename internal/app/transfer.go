package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prn-tf/ballotbox/internal/repository"
)

// ErrNothingToTransfer is returned when the source store holds no state.
var ErrNothingToTransfer = errors.New("source store holds no election state")

// Transfer copies the complete state from one snapshot store to another.
// The destination is overwritten. The copied snapshot is returned.
func Transfer(ctx context.Context, from, to repository.SnapshotStore) (*repository.Snapshot, error) {
	snap, err := from.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load source: %w", err)
	}
	if !snap.UsersLoaded && !snap.CandidatesLoaded && !snap.ElectionLoaded {
		return nil, ErrNothingToTransfer
	}

	if err := to.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save destination: %w", err)
	}
	return snap, nil
}
