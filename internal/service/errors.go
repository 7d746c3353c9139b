// Package service implements ballotbox's operations on top of the directory,
// the snapshot store and the write lock.
package service

import (
	"errors"

	"github.com/prn-tf/ballotbox/internal/domain"
)

// Service errors not covered by the domain taxonomy.
var (
	// ErrStateBusy indicates the write lock stayed held by another process.
	ErrStateBusy = errors.New("election state is busy, try again")

	// ErrInternalError indicates an unexpected failure such as hashing.
	ErrInternalError = errors.New("internal error")
)

// ResetPhrase is the literal an administrator types to reset the election.
const ResetPhrase = "RESET"

// voteRejectionReason labels a failed vote for metrics.
func voteRejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrElectionNotStarted):
		return "not_started"
	case errors.Is(err, domain.ErrElectionEnded):
		return "ended"
	case errors.Is(err, domain.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, domain.ErrInvalidCandidate):
		return "invalid_candidate"
	case errors.Is(err, domain.ErrSessionExpired), errors.Is(err, domain.ErrSessionNotFound):
		return "session"
	default:
		return "other"
	}
}
