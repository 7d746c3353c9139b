// Package report renders the write-only result and backup documents.
// Neither document is read back by the program.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prn-tf/ballotbox/internal/codec"
	"github.com/prn-tf/ballotbox/internal/domain"
)

const (
	rule     = "==================================================="
	thinRule = "---------------------------------------------------"
)

// BackupStampFormat is the timestamp layout used in backup file names.
const BackupStampFormat = "20060102_150405"

// Backup kinds.
const (
	KindUsers      = "users"
	KindCandidates = "candidates"
)

// ctime renders t like C ctime(3), including the trailing newline.
func ctime(t time.Time) string {
	return t.Local().Format(time.ANSIC) + "\n"
}

// WriteResults writes the election results document.
func WriteResults(w io.Writer, candidates []domain.Candidate, registeredUsers int, now time.Time) error {
	tally := domain.NewTally(candidates)

	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("          GENERAL ELECTION RESULTS\n")
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "Report Generated: %s\n", ctime(now))

	b.WriteString("\nCandidate Results:\n")
	b.WriteString(thinRule + "\n")
	for i, r := range tally.Results {
		fmt.Fprintf(&b, "%d. %-25s (%-20s) : %d votes (%.2f%%)\n",
			i+1, r.Candidate.Name, r.Candidate.Party, r.Candidate.Votes, r.Percent)
	}

	b.WriteString("\n" + thinRule + "\n")
	fmt.Fprintf(&b, "Total Votes Cast: %d\n", tally.TotalVotes)
	fmt.Fprintf(&b, "Total Registered Users: %d\n", registeredUsers)

	if tally.Winner != nil {
		fmt.Fprintf(&b, "\nWINNER: %s (%s) with %d votes\n",
			tally.Winner.Name, tally.Winner.Party, tally.Winner.Votes)
	}

	b.WriteString("\n" + rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Results renders the results document to bytes.
func Results(candidates []domain.Candidate, registeredUsers int, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, candidates, registeredUsers, now); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UsersBackup renders the users backup document.
func UsersBackup(users []domain.User, now time.Time) ([]byte, error) {
	return backup("          USERS DATABASE BACKUP", "End of Users Backup", now, func(w io.Writer) error {
		return codec.EncodeUsers(w, users)
	})
}

// CandidatesBackup renders the candidates backup document.
func CandidatesBackup(candidates []domain.Candidate, now time.Time) ([]byte, error) {
	return backup("        CANDIDATES DATABASE BACKUP", "End of Candidates Backup", now, func(w io.Writer) error {
		return codec.EncodeCandidates(w, candidates)
	})
}

func backup(title, footer string, now time.Time, body func(io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(rule + "\n")
	buf.WriteString(title + "\n")
	buf.WriteString(rule + "\n")
	fmt.Fprintf(&buf, "Backup Created: %s\n", ctime(now))

	if err := body(&buf); err != nil {
		return nil, err
	}

	buf.WriteString(rule + "\n")
	buf.WriteString(footer + "\n")
	buf.WriteString(rule + "\n")
	return buf.Bytes(), nil
}

// BackupFileName returns "backup_<kind>_<YYYYMMDD_HHMMSS>.txt" in local time.
func BackupFileName(kind string, now time.Time) string {
	return fmt.Sprintf("backup_%s_%s.txt", kind, now.Local().Format(BackupStampFormat))
}
