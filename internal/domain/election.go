package domain

import (
	"time"
)

// Election duration bounds in days.
const (
	MinElectionDays     = 1
	MaxElectionDays     = 365
	DefaultElectionDays = 7
)

// Status is the activation state of the election window.
type Status int

const (
	// StatusNotStarted means now is before the window.
	StatusNotStarted Status = iota
	// StatusActive means now is within the window, bounds included.
	StatusActive
	// StatusEnded means now is after the window.
	StatusEnded
)

// String returns the status label.
func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "NOT STARTED"
	case StatusActive:
		return "ACTIVE"
	case StatusEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// Err returns the error that blocks voting in this status, or nil when active.
func (s Status) Err() error {
	switch s {
	case StatusNotStarted:
		return ErrElectionNotStarted
	case StatusEnded:
		return ErrElectionEnded
	default:
		return nil
	}
}

// ElectionStatus computes the status of the window [start, end] at now.
// The exact start and end instants count as active.
func ElectionStatus(now, start, end time.Time) Status {
	if now.Before(start) {
		return StatusNotStarted
	}
	if now.After(end) {
		return StatusEnded
	}
	return StatusActive
}

// ElectionConfig is the configured election window.
type ElectionConfig struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewElectionWindow returns a window starting at now and lasting days days.
func NewElectionWindow(now time.Time, days int) (ElectionConfig, error) {
	if days < MinElectionDays || days > MaxElectionDays {
		return ElectionConfig{}, ErrInvalidDuration
	}
	now = now.Truncate(time.Second)
	return ElectionConfig{
		Start: now,
		End:   now.Add(time.Duration(days) * 24 * time.Hour),
	}, nil
}

// Status returns the window status at now.
func (c ElectionConfig) Status(now time.Time) Status {
	return ElectionStatus(now, c.Start, c.End)
}

// Validate checks that the window ends after it starts.
func (c ElectionConfig) Validate() error {
	if !c.End.After(c.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Duration returns the window length.
func (c ElectionConfig) Duration() time.Duration {
	return c.End.Sub(c.Start)
}

// PeriodMode selects how an administrator sets the election window.
type PeriodMode int

const (
	// PeriodDurationFromNow sets [now, now+days].
	PeriodDurationFromNow PeriodMode = 1
	// PeriodExplicit sets explicit civil start and end datetimes.
	PeriodExplicit PeriodMode = 2
	// PeriodStartImmediately is operationally identical to PeriodDurationFromNow.
	PeriodStartImmediately PeriodMode = 3
)

// CivilDateTime is a calendar date and wall clock time with minute precision.
type CivilDateTime struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

// In converts the civil datetime to an instant in loc.
func (c CivilDateTime) In(loc *time.Location) (time.Time, error) {
	if c.Month < 1 || c.Month > 12 || c.Day < 1 || c.Day > 31 ||
		c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 || c.Year < 1970 {
		return time.Time{}, ErrInvalidDateTime
	}
	if loc == nil {
		loc = time.Local
	}
	t := time.Date(c.Year, time.Month(c.Month), c.Day, c.Hour, c.Minute, 0, 0, loc)
	// time.Date normalises 31 April into 1 May; reject that.
	if t.Day() != c.Day {
		return time.Time{}, ErrInvalidDateTime
	}
	return t, nil
}
