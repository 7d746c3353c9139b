// Package domain contains the core business entities for ballotbox.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (file system, database, network).

var (
	// ===========================================
	// Validation Errors
	// ===========================================

	// ErrEmptyFullName indicates a registration without a display name.
	ErrEmptyFullName = errors.New("full name cannot be empty")

	// ErrInvalidNID indicates the national identifier is not 10-17 digits.
	ErrInvalidNID = errors.New("invalid NID: must be 10-17 digits only")

	// ErrWeakPassword indicates the password misses length or character class rules.
	ErrWeakPassword = errors.New("weak password: must have 8+ chars, uppercase, lowercase, and digit")

	// ErrEmptyCandidateName indicates a candidate without a name.
	ErrEmptyCandidateName = errors.New("candidate name cannot be empty")

	// ErrEmptyParty indicates a candidate without a party.
	ErrEmptyParty = errors.New("party name cannot be empty")

	// ErrInvalidAge indicates a candidate age outside 18-100.
	ErrInvalidAge = errors.New("invalid age: must be between 18 and 100")

	// ErrMultilineField indicates a text field containing a line break.
	// Records are line oriented, so such values cannot be persisted.
	ErrMultilineField = errors.New("field must not contain line breaks")

	// ErrFieldTooLong indicates a text field longer than its limit.
	ErrFieldTooLong = errors.New("field is too long")

	// ErrInvalidDuration indicates an election duration outside 1-365 days.
	ErrInvalidDuration = errors.New("invalid duration: must be 1-365 days")

	// ErrInvalidPeriod indicates an election window whose end is not after its start.
	ErrInvalidPeriod = errors.New("end time must be after start time")

	// ErrInvalidPeriodMode indicates an unknown election period configuration mode.
	ErrInvalidPeriodMode = errors.New("invalid election period mode")

	// ErrInvalidDateTime indicates a civil date/time component out of range.
	ErrInvalidDateTime = errors.New("invalid date or time")

	// ===========================================
	// State Conflict Errors
	// ===========================================

	// ErrUserAlreadyExists indicates the NID is already registered.
	ErrUserAlreadyExists = errors.New("this NID is already registered")

	// ErrUserNotFound indicates no user has the given NID.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials indicates NID/password authentication failed.
	ErrInvalidCredentials = errors.New("invalid NID number or password")

	// ErrAlreadyVoted indicates the user has already cast their vote.
	ErrAlreadyVoted = errors.New("you have already cast your vote")

	// ErrElectionNotActive indicates the election window does not contain now.
	ErrElectionNotActive = errors.New("election is not active")

	// ErrElectionNotStarted indicates now is before the election start.
	ErrElectionNotStarted = fmt.Errorf("%w: election has not started yet", ErrElectionNotActive)

	// ErrElectionEnded indicates now is after the election end.
	ErrElectionEnded = fmt.Errorf("%w: election has ended", ErrElectionNotActive)

	// ErrInvalidCandidate indicates a candidate id outside 1..N.
	ErrInvalidCandidate = errors.New("invalid candidate ID")

	// ErrCandidateHasVotes indicates removal of a candidate that already received votes.
	ErrCandidateHasVotes = errors.New("candidate has received votes and cannot be removed")

	// ErrConfirmationRequired indicates a destructive action was not confirmed.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrAdminAccessDenied indicates a wrong admin passphrase.
	ErrAdminAccessDenied = errors.New("invalid admin password")

	// ErrSessionExpired indicates the idle timeout elapsed.
	ErrSessionExpired = errors.New("session timeout: please login again")

	// ErrSessionNotFound indicates an unknown or logged out session token.
	ErrSessionNotFound = errors.New("session not found")

	// ===========================================
	// Capacity Errors
	// ===========================================

	// ErrUserCapacity indicates the registration limit was reached.
	ErrUserCapacity = errors.New("registration limit reached")

	// ErrCandidateCapacity indicates the candidate limit was reached.
	ErrCandidateCapacity = errors.New("maximum candidate limit reached")

	// ===========================================
	// Persistence Errors
	// ===========================================

	// ErrPersistence indicates state could not be written or read.
	ErrPersistence = errors.New("persistence failure")

	// ErrCorruptRecord indicates a persisted record could not be decoded.
	ErrCorruptRecord = errors.New("corrupt record")
)

// ErrorKind classifies errors into the categories reported to callers.
type ErrorKind int

const (
	// KindUnknown is any error not in the taxonomy.
	KindUnknown ErrorKind = iota
	// KindValidation is malformed input; no state change.
	KindValidation
	// KindStateConflict is a request that conflicts with current state; no state change.
	KindStateConflict
	// KindCapacity is a configured limit being reached; no state change.
	KindCapacity
	// KindPersistence is a storage failure.
	KindPersistence
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindCapacity:
		return "capacity"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

var errorKinds = map[ErrorKind][]error{
	KindValidation: {
		ErrEmptyFullName, ErrInvalidNID, ErrWeakPassword, ErrEmptyCandidateName,
		ErrEmptyParty, ErrInvalidAge, ErrMultilineField, ErrFieldTooLong, ErrInvalidDuration,
		ErrInvalidPeriod, ErrInvalidPeriodMode, ErrInvalidDateTime,
	},
	KindStateConflict: {
		ErrUserAlreadyExists, ErrUserNotFound, ErrInvalidCredentials, ErrAlreadyVoted,
		ErrElectionNotActive, ErrInvalidCandidate, ErrCandidateHasVotes,
		ErrConfirmationRequired, ErrAdminAccessDenied, ErrSessionExpired, ErrSessionNotFound,
	},
	KindCapacity:    {ErrUserCapacity, ErrCandidateCapacity},
	KindPersistence: {ErrPersistence, ErrCorruptRecord},
}

// KindOf returns the taxonomy category of err.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for _, kind := range []ErrorKind{KindValidation, KindStateConflict, KindCapacity, KindPersistence} {
		for _, target := range errorKinds[kind] {
			if errors.Is(err, target) {
				return kind
			}
		}
	}
	return KindUnknown
}

// AlreadyVotedError is returned when a user tries to vote twice.
// It carries the instant of the vote already on record.
type AlreadyVotedError struct {
	VotedAt time.Time
}

// Error implements the error interface.
func (e *AlreadyVotedError) Error() string {
	return fmt.Sprintf("%s (voted on %s)", ErrAlreadyVoted.Error(), e.VotedAt.Local().Format(DisplayTimeFormat))
}

// Unwrap returns ErrAlreadyVoted for errors.Is.
func (e *AlreadyVotedError) Unwrap() error {
	return ErrAlreadyVoted
}

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., NID, candidate id).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}
