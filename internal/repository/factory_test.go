package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/ballotbox/internal/config"
	"github.com/prn-tf/ballotbox/internal/domain"
)

type stubStore struct{ SnapshotStore }

func TestFactory_Open(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "text"}}
	f := NewFactory(cfg, zerolog.Nop())

	_, err := f.Open(context.Background())
	assert.ErrorIs(t, err, ErrUnknownDriver)

	want := &stubStore{}
	f.Register("text", func(context.Context, *config.Config, zerolog.Logger) (SnapshotStore, error) {
		return want, nil
	}).Register("sqlite", func(context.Context, *config.Config, zerolog.Logger) (SnapshotStore, error) {
		return nil, errors.New("disk on fire")
	})

	assert.Equal(t, []string{"sqlite", "text"}, f.Drivers())

	got, err := f.Open(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, got)

	_, err = f.OpenDriver(context.Background(), "sqlite")
	assert.ErrorContains(t, err, "disk on fire")
}

func TestSnapshot_Clone(t *testing.T) {
	var nilSnap *Snapshot
	assert.Nil(t, nilSnap.Clone())

	s := &Snapshot{UsersLoaded: true, Users: []domain.User{{NID: "1234567890"}}}
	c := s.Clone()
	c.Users[0].FullName = "changed"
	assert.Empty(t, s.Users[0].FullName)
	assert.True(t, c.UsersLoaded)
}
