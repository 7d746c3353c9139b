package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/ballotbox/internal/activity"
	"github.com/prn-tf/ballotbox/internal/domain"
)

// DefaultSessionTimeout is the idle time after which a voter session ends.
const DefaultSessionTimeout = 300 * time.Second

// Session is a logged-in voter.
type Session struct {
	Token        string
	NID          string
	FullName     string
	StartedAt    time.Time
	LastActivity time.Time
}

// actor returns the activity identity of the session's voter.
func (s Session) actor() *activity.Actor {
	return &activity.Actor{Name: s.FullName, NID: s.NID}
}

// IsAlive reports whether a session last active at last is still valid at
// now. The session survives exactly timeout of idleness.
func IsAlive(now, last time.Time, timeout time.Duration) bool {
	return now.Sub(last) <= timeout
}

// SessionService tracks voter sessions and enforces the idle timeout.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration
	state    *StateManager
	logger   zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(state *StateManager, timeout time.Duration, logger zerolog.Logger) *SessionService {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &SessionService{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		state:    state,
		logger:   logger.With().Str("service", "session").Logger(),
	}
}

// Timeout returns the idle timeout.
func (s *SessionService) Timeout() time.Duration {
	return s.timeout
}

// Create starts a session for user at now.
func (s *SessionService) Create(user domain.User, now time.Time) Session {
	sess := &Session{
		Token:        uuid.NewString(),
		NID:          user.NID,
		FullName:     user.FullName,
		StartedAt:    now,
		LastActivity: now,
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()

	s.logger.Debug().Str("nid", user.NID).Msg("session created")
	return *sess
}

// Check validates token at now and records the activity. An expired session
// is removed and ErrSessionExpired returned; the voter must log in again.
func (s *SessionService) Check(token string, now time.Time) (Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[token]
	if !ok {
		s.mu.Unlock()
		return Session{}, domain.ErrSessionNotFound
	}
	if !IsAlive(now, sess.LastActivity, s.timeout) {
		delete(s.sessions, token)
		expired := *sess
		s.mu.Unlock()

		s.state.Record(activity.ActionSessionExpired, expired.actor())
		s.state.Metrics().RecordSessionExpired()
		s.logger.Info().
			Str("nid", expired.NID).
			Dur("idle", now.Sub(expired.LastActivity)).
			Msg("session expired")
		return Session{}, domain.ErrSessionExpired
	}
	sess.LastActivity = now
	out := *sess
	s.mu.Unlock()

	return out, nil
}

// Logout ends the session for token.
func (s *SessionService) Logout(token string) error {
	s.mu.Lock()
	sess, ok := s.sessions[token]
	if ok {
		delete(s.sessions, token)
	}
	s.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}

	s.state.Record(activity.ActionUserLoggedOut, sess.actor())
	s.logger.Debug().Str("nid", sess.NID).Msg("session closed")
	return nil
}

// Active returns the number of open sessions.
func (s *SessionService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
