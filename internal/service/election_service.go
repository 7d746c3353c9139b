package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/ballotbox/internal/domain"
)

// ElectionService answers read-only questions about candidates, results and
// participation.
type ElectionService struct {
	state    *StateManager
	sessions *SessionService
	logger   zerolog.Logger
}

// NewElectionService creates a new ElectionService.
func NewElectionService(state *StateManager, sessions *SessionService, logger zerolog.Logger) *ElectionService {
	return &ElectionService{
		state:    state,
		sessions: sessions,
		logger:   logger.With().Str("service", "election").Logger(),
	}
}

// ListCandidates returns the roster in id order.
func (s *ElectionService) ListCandidates() []domain.Candidate {
	return s.state.Directory().Candidates()
}

// CandidateDetails returns the candidate with the given id.
func (s *ElectionService) CandidateDetails(id int) (domain.Candidate, error) {
	c, ok := s.state.Directory().Candidate(id)
	if !ok {
		return domain.Candidate{}, domain.NewDomainError(domain.ErrInvalidCandidate, "no such candidate", strconv.Itoa(id))
	}
	return c, nil
}

// Search returns the candidates whose name or party contains term,
// ignoring case. An empty term matches every candidate.
func (s *ElectionService) Search(term string) []domain.Candidate {
	term = strings.TrimSpace(term)

	var matches []domain.Candidate
	for _, c := range s.state.Directory().Candidates() {
		if c.Matches(term) {
			matches = append(matches, c)
		}
	}
	return matches
}

// Results returns the tally for the session's voter.
func (s *ElectionService) Results(ctx context.Context, token string) (*domain.Tally, error) {
	if _, err := s.sessions.Check(token, s.state.Now()); err != nil {
		return nil, err
	}
	tally := s.Tally()
	return &tally, nil
}

// Tally counts the current votes. It is not session gated and serves the
// administrator views.
func (s *ElectionService) Tally() domain.Tally {
	return domain.NewTally(s.state.Directory().Candidates())
}

// Statistics summarises participation at the current instant.
func (s *ElectionService) Statistics() domain.Statistics {
	snap := s.state.Directory().Snapshot()
	return domain.NewStatistics(snap.Users, snap.Candidates, snap.Election, s.state.Now())
}

// Status returns the election window and its status now.
func (s *ElectionService) Status() (domain.ElectionConfig, domain.Status) {
	window := s.state.Directory().Election()
	return window, window.Status(s.state.Now())
}
