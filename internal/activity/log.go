// Package activity appends human-readable audit lines to the activity log.
package activity

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prn-tf/ballotbox/internal/domain"
)

// Action labels written to the log.
const (
	ActionUserRegistered   = "User registered"
	ActionUserLoggedIn     = "User logged in"
	ActionFailedLogin      = "Failed login attempt"
	ActionUserLoggedOut    = "User logged out"
	ActionVoteCast         = "Vote cast"
	ActionAdminLoggedIn    = "Admin logged in"
	ActionFailedAdminLogin = "Failed admin login attempt"
	ActionResultsExported  = "Results exported"
	ActionElectionReset    = "Election reset by admin"
	ActionCandidateAdded   = "Candidate added by admin"
	ActionCandidateRemoved = "Candidate removed by admin"
	ActionBackupCreated    = "Backup created"
	ActionPeriodUpdated    = "Election period updated"
	ActionSystemShutdown   = "System shutdown"
	ActionSessionExpired   = "Session expired"
	ActionPasswordRehashed = "Password hash upgraded"
)

// Actor identifies the user an entry is about.
type Actor struct {
	Name string
	NID  string
}

// ActorOf returns the actor for u.
func ActorOf(u domain.User) *Actor {
	return &Actor{Name: u.FullName, NID: u.NID}
}

// Entry is one log line.
type Entry struct {
	Time   time.Time
	Action string
	Actor  *Actor
}

// Format renders the entry as a single line without the trailing newline.
func (e Entry) Format() string {
	line := fmt.Sprintf("[%s] %s", e.Time.Local().Format(domain.DisplayTimeFormat), e.Action)
	if e.Actor != nil {
		line += fmt.Sprintf(" - User: %s (NID: %s)", e.Actor.Name, e.Actor.NID)
	}
	return line
}

// Recorder records entries.
type Recorder interface {
	Record(e Entry) error
}

// FileLog appends entries to a file. The file is opened per write so that
// external rotation and other processes appending are both tolerated.
type FileLog struct {
	mu   sync.Mutex
	path string
}

// NewFileLog creates a log appending to path.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// Path returns the log file path.
func (l *FileLog) Path() string {
	return l.path
}

// Record appends e.
func (l *FileLog) Record(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: activity log: %v", domain.ErrPersistence, err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: activity log: %v", domain.ErrPersistence, err)
	}
	defer f.Close()

	if _, err := io.WriteString(f, e.Format()+"\n"); err != nil {
		return fmt.Errorf("%w: activity log: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Discard drops every entry.
type Discard struct{}

// Record does nothing.
func (Discard) Record(Entry) error { return nil }

// Memory keeps entries in memory.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// Record stores e.
func (m *Memory) Record(e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns the recorded entries.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// Actions returns just the action labels, in order.
func (m *Memory) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

var (
	_ Recorder = (*FileLog)(nil)
	_ Recorder = Discard{}
	_ Recorder = (*Memory)(nil)
)
