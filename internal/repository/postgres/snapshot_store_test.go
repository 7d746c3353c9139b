package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/ballotbox/internal/config"
	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/repository"
)

// Runs only when BALLOTBOX_TEST_POSTGRES_HOST points at a scratch database.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	host := os.Getenv("BALLOTBOX_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("BALLOTBOX_TEST_POSTGRES_HOST not set")
	}

	cfg := config.PostgresConfig{
		Host:            host,
		Port:            5432,
		User:            envOr("BALLOTBOX_TEST_POSTGRES_USER", "ballotbox"),
		Password:        os.Getenv("BALLOTBOX_TEST_POSTGRES_PASSWORD"),
		Database:        envOr("BALLOTBOX_TEST_POSTGRES_DB", "ballotbox_test"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
	}

	ctx := context.Background()
	db, err := NewDB(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	store := NewSnapshotStore(openTestDB(t))
	defer store.Close()
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

	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.ElectionLoaded)
	assert.Equal(t, want.Users, got.Users)
	assert.Equal(t, want.Candidates, got.Candidates)
	assert.Equal(t, want.Election, got.Election)
}
