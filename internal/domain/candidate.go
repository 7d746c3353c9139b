package domain

import (
	"strings"
)

// Candidate age bounds.
const (
	MinCandidateAge = 18
	MaxCandidateAge = 100
)

// Candidate text limits, in characters.
const (
	MaxCandidateNameLength = 50
	MaxPartyLength         = 50
	MaxEducationLength     = 100
	MaxManifestoLength     = 200
)

// Candidate represents a person standing in the election.
type Candidate struct {
	// ID is the 1-based position in the roster. IDs always form 1..N.
	ID int `json:"id"`

	// Name is the candidate name. Never empty.
	Name string `json:"name"`

	// Party is the party name. Never empty.
	Party string `json:"party"`

	// Education is free text.
	Education string `json:"education"`

	// Age must be within 18-100.
	Age int `json:"age"`

	// Manifesto is free text.
	Manifesto string `json:"manifesto"`

	// Votes is the number of votes received.
	Votes int `json:"votes"`
}

// Validate checks the admin-entered candidate fields.
func (c Candidate) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCandidateName
	}
	if strings.TrimSpace(c.Party) == "" {
		return ErrEmptyParty
	}
	if c.Age < MinCandidateAge || c.Age > MaxCandidateAge {
		return ErrInvalidAge
	}
	fields := []struct {
		name  string
		value string
		limit int
	}{
		{"name", c.Name, MaxCandidateNameLength},
		{"party", c.Party, MaxPartyLength},
		{"education", c.Education, MaxEducationLength},
		{"manifesto", c.Manifesto, MaxManifestoLength},
	}
	for _, f := range fields {
		if err := CheckText(f.name, f.value, f.limit); err != nil {
			return err
		}
	}
	return nil
}

// Matches reports whether term is a case-insensitive substring of the name or party.
func (c Candidate) Matches(term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(c.Name), term) ||
		strings.Contains(strings.ToLower(c.Party), term)
}

// DefaultCandidates returns the roster used when no candidate state exists yet.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{ID: 1, Name: "John Smith", Party: "Democratic Party", Education: "MBA from Harvard University", Age: 52, Manifesto: "Focus on healthcare reform and education"},
		{ID: 2, Name: "Sarah Johnson", Party: "Republican Party", Education: "Law Degree from Yale", Age: 48, Manifesto: "Economic growth and tax reforms"},
		{ID: 3, Name: "Michael Brown", Party: "Independent", Education: "PhD in Economics", Age: 45, Manifesto: "Environmental protection and sustainability"},
		{ID: 4, Name: "Emily Davis", Party: "Green Party", Education: "MS in Environmental Science", Age: 42, Manifesto: "Climate action and renewable energy"},
		{ID: 5, Name: "Robert Wilson", Party: "Libertarian Party", Education: "BA in Political Science", Age: 55, Manifesto: "Individual freedom and limited government"},
	}
}
