// Package domain contains the core business entities for ballotbox.
// These are pure Go structs with no external dependencies, representing
// voters, candidates and the election window.
package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// NID length bounds.
const (
	MinNIDLength = 10
	MaxNIDLength = 17

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8

	// MaxFullNameLength is the longest accepted display name, in characters.
	MaxFullNameLength = 50
)

// DisplayTimeFormat is the layout used for timestamps shown to people.
const DisplayTimeFormat = "2006-01-02 15:04:05"

// User represents a registered voter.
type User struct {
	// FullName is the display name. Never empty.
	FullName string `json:"full_name"`

	// NID is the national identifier: 10-17 ASCII digits, unique across users.
	NID string `json:"nid"`

	// PasswordHash is the stored credential token (bcrypt).
	// This should never be exposed.
	PasswordHash string `json:"-"`

	// HasVoted is set once the user's single vote has been recorded.
	HasVoted bool `json:"has_voted"`

	// VoteTime is the instant of the vote. Meaningful only when HasVoted is true.
	VoteTime time.Time `json:"vote_time"`
}

// NewUser creates a new User that has not voted yet.
func NewUser(fullName, nid, passwordHash string) User {
	return User{
		FullName:     fullName,
		NID:          nid,
		PasswordHash: passwordHash,
	}
}

// RecordVote marks the user as having voted at now.
func (u *User) RecordVote(now time.Time) {
	u.HasVoted = true
	u.VoteTime = now
}

// ClearVote resets the voting status.
func (u *User) ClearVote() {
	u.HasVoted = false
	u.VoteTime = time.Time{}
}

// ValidateNID reports whether nid is 10-17 ASCII digits.
func ValidateNID(nid string) bool {
	if len(nid) < MinNIDLength || len(nid) > MaxNIDLength {
		return false
	}
	for i := 0; i < len(nid); i++ {
		if nid[i] < '0' || nid[i] > '9' {
			return false
		}
	}
	return true
}

// ValidatePassword reports whether password has at least 8 characters
// including an uppercase letter, a lowercase letter and a digit.
func ValidatePassword(password string) bool {
	if len(password) < MinPasswordLength {
		return false
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

// IsSingleLine reports whether s contains no line breaks.
func IsSingleLine(s string) bool {
	return !strings.ContainsAny(s, "\r\n")
}

// CheckText rejects a stored text field that spans lines or exceeds limit characters.
func CheckText(field, value string, limit int) error {
	if !IsSingleLine(value) {
		return fmt.Errorf("%w: %s", ErrMultilineField, field)
	}
	if utf8.RuneCountInString(value) > limit {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrFieldTooLong, field, limit)
	}
	return nil
}

// IsAffirmative reports whether a confirmation answer means yes.
// Only the first non-space character is considered ("Y", "y", "yes" all confirm).
func IsAffirmative(answer string) bool {
	answer = strings.TrimSpace(answer)
	return answer != "" && (answer[0] == 'Y' || answer[0] == 'y')
}
