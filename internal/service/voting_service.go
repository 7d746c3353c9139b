package service

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/ballotbox/internal/activity"
	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/repository"
)

// VotingService records votes.
type VotingService struct {
	state    *StateManager
	sessions *SessionService
	logger   zerolog.Logger
}

// NewVotingService creates a new VotingService.
func NewVotingService(state *StateManager, sessions *SessionService, logger zerolog.Logger) *VotingService {
	return &VotingService{
		state:    state,
		sessions: sessions,
		logger:   logger.With().Str("service", "voting").Logger(),
	}
}

// CastVoteInput identifies the voter by session and the chosen candidate.
type CastVoteInput struct {
	SessionToken string
	CandidateID  int
}

// VoteReceipt describes a recorded vote.
type VoteReceipt struct {
	Voter     domain.User
	Candidate domain.Candidate
	VotedAt   time.Time
	Persisted bool
}

// Eligibility checks whether the session's voter could vote right now,
// without choosing a candidate. It applies the same gates as CastVote.
func (s *VotingService) Eligibility(ctx context.Context, token string) (domain.User, error) {
	now := s.state.Now()
	sess, err := s.sessions.Check(token, now)
	if err != nil {
		return domain.User{}, err
	}

	dir := s.state.Directory()
	if err := dir.Election().Status(now).Err(); err != nil {
		return domain.User{}, err
	}
	idx, ok := dir.FindUserByIdentifier(sess.NID)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	user, _ := dir.User(idx)
	if user.HasVoted {
		return user, &domain.AlreadyVotedError{VotedAt: user.VoteTime}
	}
	return user, nil
}

// CastVote records the session voter's single vote for a candidate.
func (s *VotingService) CastVote(ctx context.Context, input CastVoteInput) (receipt *VoteReceipt, err error) {
	defer func() {
		var reason string
		if err != nil {
			reason = voteRejectionReason(err)
		}
		s.state.Metrics().RecordVote(reason, err)
	}()

	now := s.state.Now()
	sess, err := s.sessions.Check(input.SessionToken, now)
	if err != nil {
		return nil, err
	}

	var (
		voter  domain.User
		chosen domain.Candidate
	)
	persisted, err := s.state.Mutate(ctx, "vote", func(dir repository.Directory) error {
		idx, ok := dir.FindUserByIdentifier(sess.NID)
		if !ok {
			return domain.ErrUserNotFound
		}
		return dir.Update(func(tx *repository.Tx) error {
			var err error
			voter, chosen, err = ApplyVote(tx, idx, input.CandidateID, now)
			return err
		})
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("nid", sess.NID).Int("candidate_id", input.CandidateID).Msg("vote rejected")
		return nil, err
	}

	s.state.Record(activity.ActionVoteCast, activity.ActorOf(voter))
	s.logger.Info().
		Str("nid", voter.NID).
		Int("candidate_id", chosen.ID).
		Bool("persisted", persisted).
		Msg("vote cast")

	return &VoteReceipt{
		Voter:     voter,
		Candidate: chosen,
		VotedAt:   now,
		Persisted: persisted,
	}, nil
}

// ApplyVote records a vote by the user at userIndex for candidateID at now.
// Preconditions are checked in order: the election is active, the user has
// not voted, the candidate exists. On success the candidate's count and the
// user's vote flag change together; on failure tx is left untouched.
func ApplyVote(tx *repository.Tx, userIndex, candidateID int, now time.Time) (domain.User, domain.Candidate, error) {
	if err := tx.Election.Status(now).Err(); err != nil {
		return domain.User{}, domain.Candidate{}, err
	}

	user := tx.User(userIndex)
	if user == nil {
		return domain.User{}, domain.Candidate{}, domain.ErrUserNotFound
	}
	if user.HasVoted {
		return domain.User{}, domain.Candidate{}, &domain.AlreadyVotedError{VotedAt: user.VoteTime}
	}

	candidate := tx.Candidate(candidateID)
	if candidate == nil {
		return domain.User{}, domain.Candidate{}, domain.NewDomainError(
			domain.ErrInvalidCandidate, "vote rejected", strconv.Itoa(candidateID))
	}

	candidate.Votes++
	user.RecordVote(now)
	return *user, *candidate, nil
}
