package domain

import (
	"time"
)

// CandidateResult is one row of a tally.
type CandidateResult struct {
	Candidate Candidate
	Percent   float64
}

// Tally is the vote count over the whole roster.
type Tally struct {
	Results    []CandidateResult
	TotalVotes int
	Winner     *Candidate
}

// Statistics summarises participation.
type Statistics struct {
	RegisteredUsers int
	VotedUsers      int
	NotVotedUsers   int
	Turnout         float64
	TotalVotes      int
	TotalCandidates int
	Period          ElectionConfig
	Status          Status
}

// Winner returns the candidate with the strictly highest vote count.
// Ties go to the first encountered (lowest id). There is no winner when
// the roster is empty or every candidate has zero votes.
func Winner(candidates []Candidate) (Candidate, bool) {
	best := -1
	maxVotes := -1
	for i, c := range candidates {
		if c.Votes > maxVotes {
			maxVotes = c.Votes
			best = i
		}
	}
	if best == -1 || maxVotes <= 0 {
		return Candidate{}, false
	}
	return candidates[best], true
}

// Percent returns part as a percentage of total, 0 when total is 0.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) * 100.0 / float64(total)
}

// NewTally counts votes over candidates.
func NewTally(candidates []Candidate) Tally {
	total := 0
	for _, c := range candidates {
		total += c.Votes
	}

	t := Tally{
		Results:    make([]CandidateResult, 0, len(candidates)),
		TotalVotes: total,
	}
	for _, c := range candidates {
		t.Results = append(t.Results, CandidateResult{Candidate: c, Percent: Percent(c.Votes, total)})
	}
	if w, ok := Winner(candidates); ok {
		t.Winner = &w
	}
	return t
}

// NewStatistics summarises users, candidates and the window at now.
func NewStatistics(users []User, candidates []Candidate, period ElectionConfig, now time.Time) Statistics {
	voted := 0
	for _, u := range users {
		if u.HasVoted {
			voted++
		}
	}
	total := 0
	for _, c := range candidates {
		total += c.Votes
	}

	return Statistics{
		RegisteredUsers: len(users),
		VotedUsers:      voted,
		NotVotedUsers:   len(users) - voted,
		Turnout:         Percent(voted, len(users)),
		TotalVotes:      total,
		TotalCandidates: len(candidates),
		Period:          period,
		Status:          period.Status(now),
	}
}
