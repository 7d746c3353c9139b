package activity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/ballotbox/internal/domain"
)

func TestEntry_Format(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 5, 9, 0, time.Local)

	e := Entry{Time: at, Action: ActionVoteCast, Actor: ActorOf(domain.User{FullName: "Ada Lovelace", NID: "1234567890"})}
	assert.Equal(t, "[2026-03-01 08:05:09] Vote cast - User: Ada Lovelace (NID: 1234567890)", e.Format())

	e = Entry{Time: at, Action: ActionSystemShutdown}
	assert.Equal(t, "[2026-03-01 08:05:09] System shutdown", e.Format())
}

func TestFileLog_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "activity_log.txt")
	log := NewFileLog(path)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)

	require.NoError(t, log.Record(Entry{Time: at, Action: ActionAdminLoggedIn}))
	require.NoError(t, log.Record(Entry{Time: at, Action: ActionBackupCreated}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Equal(t, []string{
		"[2026-03-01 08:00:00] Admin logged in",
		"[2026-03-01 08:00:00] Backup created",
	}, lines)
}

func TestFileLog_FailureIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := NewFileLog(filepath.Join(blocker, "log.txt")).Record(Entry{Action: ActionVoteCast})
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestMemory(t *testing.T) {
	var m Memory
	require.NoError(t, m.Record(Entry{Action: ActionUserRegistered}))
	require.NoError(t, m.Record(Entry{Action: ActionUserLoggedIn}))
	assert.Equal(t, []string{ActionUserRegistered, ActionUserLoggedIn}, m.Actions())
	assert.Len(t, m.Entries(), 2)
}
