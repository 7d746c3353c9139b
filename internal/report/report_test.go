package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/ballotbox/internal/domain"
)

var reportTime = time.Date(2026, 3, 1, 8, 5, 9, 0, time.Local)

func TestResults_WithWinner(t *testing.T) {
	candidates := []domain.Candidate{
		{ID: 1, Name: "John Smith", Party: "Democratic Party", Votes: 1},
		{ID: 2, Name: "Sarah Johnson", Party: "Republican Party", Votes: 3},
	}

	data, err := Results(candidates, 7, reportTime)
	require.NoError(t, err)
	got := string(data)

	want := rule + "\n" +
		"          GENERAL ELECTION RESULTS\n" +
		rule + "\n\n" +
		"Report Generated: Sun Mar  1 08:05:09 2026\n\n" +
		"\nCandidate Results:\n" +
		thinRule + "\n" +
		"1. John Smith                (Democratic Party    ) : 1 votes (25.00%)\n" +
		"2. Sarah Johnson             (Republican Party    ) : 3 votes (75.00%)\n" +
		"\n" + thinRule + "\n" +
		"Total Votes Cast: 4\n" +
		"Total Registered Users: 7\n" +
		"\nWINNER: Sarah Johnson (Republican Party) with 3 votes\n" +
		"\n" + rule + "\n"
	assert.Equal(t, want, got)
}

func TestResults_NoVotesHasNoWinner(t *testing.T) {
	data, err := Results(domain.DefaultCandidates(), 0, reportTime)
	require.NoError(t, err)
	got := string(data)
	assert.NotContains(t, got, "WINNER")
	assert.Contains(t, got, "1. John Smith")
	assert.Contains(t, got, ": 0 votes (0.00%)")
	assert.Contains(t, got, "Total Votes Cast: 0\n")
}

func TestUsersBackup(t *testing.T) {
	data, err := UsersBackup([]domain.User{{FullName: "Ada", NID: "1234567890", PasswordHash: "h"}}, reportTime)
	require.NoError(t, err)

	s := string(data)
	assert.True(t, strings.HasPrefix(s, rule+"\n          USERS DATABASE BACKUP\n"+rule+"\n"))
	assert.Contains(t, s, "Backup Created: Sun Mar  1 08:05:09 2026\n\nTOTAL_USERS=1\n\nUSER_1_START\n")
	assert.True(t, strings.HasSuffix(s, "USER_1_END\n\n"+rule+"\nEnd of Users Backup\n"+rule+"\n"))
}

func TestCandidatesBackup(t *testing.T) {
	data, err := CandidatesBackup(domain.DefaultCandidates(), reportTime)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, "        CANDIDATES DATABASE BACKUP\n")
	assert.Contains(t, s, "TOTAL_CANDIDATES=5\n")
	assert.Contains(t, s, "End of Candidates Backup\n")
}

func TestBackupFileName(t *testing.T) {
	assert.Equal(t, "backup_users_20260301_080509.txt", BackupFileName(KindUsers, reportTime))
	assert.Equal(t, "backup_candidates_20260301_080509.txt", BackupFileName(KindCandidates, reportTime))
}
