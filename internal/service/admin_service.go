package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/ballotbox/internal/activity"
	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/report"
	"github.com/prn-tf/ballotbox/internal/repository"
	"github.com/prn-tf/ballotbox/internal/storage"
)

// DefaultResultsFile is the artifact name of exported results.
const DefaultResultsFile = "election_results.txt"

// AdminConfig contains the administrator settings.
type AdminConfig struct {
	// Passphrase is the shared admin passphrase.
	Passphrase string

	// AllowRemoveWithVotes lets candidates with votes be removed; their
	// votes are discarded with them.
	AllowRemoveWithVotes bool

	// ResultsFile is the artifact name used by ExportResults.
	ResultsFile string

	// Location interprets explicit election period datetimes.
	// Nil means the local time zone.
	Location *time.Location
}

// AdminService implements the administrator operations.
type AdminService struct {
	state  *StateManager
	sinks  *storage.Multi
	config AdminConfig
	logger zerolog.Logger
}

// NewAdminService creates a new AdminService writing artifacts to sinks.
func NewAdminService(state *StateManager, sinks *storage.Multi, cfg AdminConfig, logger zerolog.Logger) *AdminService {
	if cfg.ResultsFile == "" {
		cfg.ResultsFile = DefaultResultsFile
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &AdminService{
		state:  state,
		sinks:  sinks,
		config: cfg,
		logger: logger.With().Str("service", "admin").Logger(),
	}
}

// Authenticate checks the admin passphrase.
func (s *AdminService) Authenticate(passphrase string) (err error) {
	defer func() { s.state.Metrics().RecordLogin("admin", err) }()

	if subtle.ConstantTimeCompare([]byte(passphrase), []byte(s.config.Passphrase)) != 1 {
		s.state.Record(activity.ActionFailedAdminLogin, nil)
		s.logger.Warn().Msg("failed admin login attempt")
		return domain.ErrAdminAccessDenied
	}

	s.state.Record(activity.ActionAdminLoggedIn, nil)
	s.logger.Info().Msg("admin logged in")
	return nil
}

// =============================================================================
// Candidates
// =============================================================================

// AddCandidateInput contains the data needed to add a candidate.
type AddCandidateInput struct {
	Name      string
	Party     string
	Education string
	Age       int
	Manifesto string
}

// CandidateOutput contains the candidate affected by an operation.
type CandidateOutput struct {
	Candidate domain.Candidate
	Remaining int
	Persisted bool
}

// AddCandidate validates the input and appends a candidate to the roster.
func (s *AdminService) AddCandidate(ctx context.Context, input AddCandidateInput) (out *CandidateOutput, err error) {
	defer func() { s.state.Metrics().RecordAdminAction("add_candidate", err) }()

	candidate := domain.Candidate{
		Name:      input.Name,
		Party:     input.Party,
		Education: input.Education,
		Age:       input.Age,
		Manifesto: input.Manifesto,
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	var added domain.Candidate
	persisted, err := s.state.Mutate(ctx, "add_candidate", func(dir repository.Directory) error {
		var err error
		added, err = dir.AddCandidate(candidate)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.state.Record(activity.ActionCandidateAdded, nil)
	s.logger.Info().Int("candidate_id", added.ID).Str("name", added.Name).Msg("candidate added")

	return &CandidateOutput{
		Candidate: added,
		Remaining: len(s.state.Directory().Candidates()),
		Persisted: persisted,
	}, nil
}

// RemoveCandidateInput identifies the candidate and carries the
// administrator's answer to the confirmation prompt.
type RemoveCandidateInput struct {
	ID           int
	Confirmation string
}

// RemoveCandidate removes a candidate and renumbers the rest. Nothing changes
// unless the confirmation is affirmative.
func (s *AdminService) RemoveCandidate(ctx context.Context, input RemoveCandidateInput) (out *CandidateOutput, err error) {
	defer func() { s.state.Metrics().RecordAdminAction("remove_candidate", err) }()

	var removed domain.Candidate
	persisted, err := s.state.Mutate(ctx, "remove_candidate", func(dir repository.Directory) error {
		current, ok := dir.Candidate(input.ID)
		if !ok {
			return domain.NewDomainError(domain.ErrInvalidCandidate, "removal rejected", strconv.Itoa(input.ID))
		}
		if !domain.IsAffirmative(input.Confirmation) {
			return fmt.Errorf("%w: removal cancelled", domain.ErrConfirmationRequired)
		}
		if current.Votes > 0 && !s.config.AllowRemoveWithVotes {
			return domain.NewDomainError(domain.ErrCandidateHasVotes, current.Name, strconv.Itoa(current.Votes)+" votes")
		}

		var err error
		removed, err = dir.RemoveCandidate(input.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if removed.Votes > 0 {
		s.logger.Warn().Int("votes", removed.Votes).Str("name", removed.Name).Msg("removed candidate's votes discarded")
	}
	s.state.Record(activity.ActionCandidateRemoved, nil)
	s.logger.Info().Int("candidate_id", input.ID).Str("name", removed.Name).Msg("candidate removed")

	return &CandidateOutput{
		Candidate: removed,
		Remaining: len(s.state.Directory().Candidates()),
		Persisted: persisted,
	}, nil
}

// =============================================================================
// Election
// =============================================================================

// ResetOutput summarises a reset.
type ResetOutput struct {
	VotesCleared  int
	VotersCleared int
	Persisted     bool
}

// ResetElection zeroes every vote count and every voter's vote status.
// phrase must be exactly ResetPhrase.
func (s *AdminService) ResetElection(ctx context.Context, phrase string) (out *ResetOutput, err error) {
	defer func() { s.state.Metrics().RecordAdminAction("reset", err) }()

	if phrase != ResetPhrase {
		return nil, fmt.Errorf("%w: type %s to reset the election", domain.ErrConfirmationRequired, ResetPhrase)
	}

	out = &ResetOutput{}
	persisted, err := s.state.Mutate(ctx, "reset", func(dir repository.Directory) error {
		return dir.Update(func(tx *repository.Tx) error {
			out.VotesCleared, out.VotersCleared = 0, 0
			for i := range tx.Candidates {
				out.VotesCleared += tx.Candidates[i].Votes
				tx.Candidates[i].Votes = 0
			}
			for i := range tx.Users {
				if tx.Users[i].HasVoted {
					out.VotersCleared++
				}
				tx.Users[i].ClearVote()
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	out.Persisted = persisted

	s.state.Record(activity.ActionElectionReset, nil)
	s.logger.Warn().
		Int("votes_cleared", out.VotesCleared).
		Int("voters_cleared", out.VotersCleared).
		Msg("election reset")

	return out, nil
}

// SetElectionPeriodInput selects how the election window is set.
// Days is used by PeriodDurationFromNow and PeriodStartImmediately,
// Start and End by PeriodExplicit.
type SetElectionPeriodInput struct {
	Mode  domain.PeriodMode
	Days  int
	Start domain.CivilDateTime
	End   domain.CivilDateTime
}

// PeriodOutput contains the new window and its status.
type PeriodOutput struct {
	Election  domain.ElectionConfig
	Status    domain.Status
	Persisted bool
}

// SetElectionPeriod replaces the election window.
func (s *AdminService) SetElectionPeriod(ctx context.Context, input SetElectionPeriodInput) (out *PeriodOutput, err error) {
	defer func() { s.state.Metrics().RecordAdminAction("set_period", err) }()

	now := s.state.Now()
	window, err := s.resolvePeriod(input, now)
	if err != nil {
		return nil, err
	}

	persisted, err := s.state.Mutate(ctx, "set_period", func(dir repository.Directory) error {
		dir.SetElection(window)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.state.Record(activity.ActionPeriodUpdated, nil)
	s.logger.Info().Time("start", window.Start).Time("end", window.End).Msg("election period updated")

	return &PeriodOutput{
		Election:  window,
		Status:    window.Status(now),
		Persisted: persisted,
	}, nil
}

func (s *AdminService) resolvePeriod(input SetElectionPeriodInput, now time.Time) (domain.ElectionConfig, error) {
	switch input.Mode {
	case domain.PeriodDurationFromNow, domain.PeriodStartImmediately:
		return domain.NewElectionWindow(now, input.Days)

	case domain.PeriodExplicit:
		start, err := input.Start.In(s.config.Location)
		if err != nil {
			return domain.ElectionConfig{}, fmt.Errorf("%w: start", err)
		}
		end, err := input.End.In(s.config.Location)
		if err != nil {
			return domain.ElectionConfig{}, fmt.Errorf("%w: end", err)
		}
		window := domain.ElectionConfig{Start: start, End: end}
		if err := window.Validate(); err != nil {
			return domain.ElectionConfig{}, err
		}
		return window, nil

	default:
		return domain.ElectionConfig{}, domain.NewDomainError(
			domain.ErrInvalidPeriodMode, "expected 1, 2 or 3", strconv.Itoa(int(input.Mode)))
	}
}

// =============================================================================
// Reports
// =============================================================================

// Artifact is a written report.
type Artifact struct {
	Name      string
	Locations []string
}

// ExportResults renders the current results and writes them to every sink.
// The directory is not modified.
func (s *AdminService) ExportResults(ctx context.Context) (out *Artifact, err error) {
	defer func() { s.state.Metrics().RecordAdminAction("export", err) }()

	dir := s.state.Directory()
	data, err := report.Results(dir.Candidates(), dir.UserCount(), s.state.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: render results: %v", ErrInternalError, err)
	}

	out, err = s.put(ctx, "export", s.config.ResultsFile, data)
	if err != nil {
		return nil, err
	}

	s.state.Record(activity.ActionResultsExported, nil)
	return out, nil
}

// CreateBackup writes timestamped copies of the users and candidates to
// every sink. The directory is not modified.
func (s *AdminService) CreateBackup(ctx context.Context) (out []Artifact, err error) {
	defer func() { s.state.Metrics().RecordAdminAction("backup", err) }()

	now := s.state.Now()
	snap := s.state.Directory().Snapshot()

	users, err := report.UsersBackup(snap.Users, now)
	if err != nil {
		return nil, err
	}
	candidates, err := report.CandidatesBackup(snap.Candidates, now)
	if err != nil {
		return nil, err
	}

	for _, part := range []struct {
		kind string
		data []byte
	}{
		{report.KindUsers, users},
		{report.KindCandidates, candidates},
	} {
		artifact, err := s.put(ctx, "backup", report.BackupFileName(part.kind, now), part.data)
		if err != nil {
			return out, err
		}
		out = append(out, *artifact)
	}

	s.state.Record(activity.ActionBackupCreated, nil)
	return out, nil
}

// put writes an artifact to all sinks. It fails only when no sink accepted it.
func (s *AdminService) put(ctx context.Context, op, name string, data []byte) (*Artifact, error) {
	locations, err := s.sinks.PutAll(ctx, name, data)
	if err != nil {
		s.state.Metrics().RecordPersistenceFailure(op)
		if len(locations) == 0 {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrPersistence, name, err)
		}
		s.logger.Warn().Err(err).Str("artifact", name).Msg("artifact not written to every sink")
	}

	s.logger.Info().Str("artifact", name).Strs("locations", locations).Msg("artifact written")
	return &Artifact{Name: name, Locations: locations}, nil
}
