// Package codec reads and writes the line-oriented record files that hold
// voters, candidates and the election window.
//
// Every file is a header line carrying the record count, a blank line, then one
// block per record:
//
//	TOTAL_USERS=2
//
//	USER_1_START
//	FullName=Ada Lovelace
//	...
//	USER_1_END
//
// Fields are always written in a fixed order. Decoding looks fields up by key,
// so reordered or missing fields are tolerated and unknown keys are ignored.
package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/prn-tf/ballotbox/internal/domain"
)

// Record kinds.
const (
	KindUser      = "USER"
	KindCandidate = "CANDIDATE"
)

// Election keys.
const (
	KeyElectionStart = "ElectionStartTime"
	KeyElectionEnd   = "ElectionEndTime"
)

// maxLineSize bounds a single line, far above the validated field limits.
const maxLineSize = 1 << 20

// field binds a key to a record value.
type field[T any] struct {
	key string
	get func(*T) string
	set func(*T, string) error
}

// schema describes one record kind.
type schema[T any] struct {
	kind   string
	fields []field[T]
}

func (s schema[T]) header() string {
	return "TOTAL_" + s.kind + "S"
}

func (s schema[T]) lookup(key string) (field[T], bool) {
	for _, f := range s.fields {
		if f.key == key {
			return f, true
		}
	}
	return field[T]{}, false
}

var userSchema = schema[domain.User]{
	kind: KindUser,
	fields: []field[domain.User]{
		{
			key: "FullName",
			get: func(u *domain.User) string { return u.FullName },
			set: func(u *domain.User, v string) error { u.FullName = v; return nil },
		},
		{
			key: "NID",
			get: func(u *domain.User) string { return u.NID },
			set: func(u *domain.User, v string) error { u.NID = v; return nil },
		},
		{
			key: "Password",
			get: func(u *domain.User) string { return u.PasswordHash },
			set: func(u *domain.User, v string) error { u.PasswordHash = v; return nil },
		},
		{
			key: "HasVoted",
			get: func(u *domain.User) string { return formatBool(u.HasVoted) },
			set: func(u *domain.User, v string) (err error) { u.HasVoted, err = parseBool(v); return err },
		},
		{
			key: "VoteTime",
			get: func(u *domain.User) string { return formatUnix(u.VoteTime) },
			set: func(u *domain.User, v string) (err error) { u.VoteTime, err = parseUnix(v); return err },
		},
	},
}

var candidateSchema = schema[domain.Candidate]{
	kind: KindCandidate,
	fields: []field[domain.Candidate]{
		{
			key: "ID",
			get: func(c *domain.Candidate) string { return strconv.Itoa(c.ID) },
			set: func(c *domain.Candidate, v string) (err error) { c.ID, err = strconv.Atoi(v); return err },
		},
		{
			key: "Name",
			get: func(c *domain.Candidate) string { return c.Name },
			set: func(c *domain.Candidate, v string) error { c.Name = v; return nil },
		},
		{
			key: "Party",
			get: func(c *domain.Candidate) string { return c.Party },
			set: func(c *domain.Candidate, v string) error { c.Party = v; return nil },
		},
		{
			key: "Education",
			get: func(c *domain.Candidate) string { return c.Education },
			set: func(c *domain.Candidate, v string) error { c.Education = v; return nil },
		},
		{
			key: "Age",
			get: func(c *domain.Candidate) string { return strconv.Itoa(c.Age) },
			set: func(c *domain.Candidate, v string) (err error) { c.Age, err = strconv.Atoi(v); return err },
		},
		{
			key: "Manifesto",
			get: func(c *domain.Candidate) string { return c.Manifesto },
			set: func(c *domain.Candidate, v string) error { c.Manifesto = v; return nil },
		},
		{
			key: "Votes",
			get: func(c *domain.Candidate) string { return strconv.Itoa(c.Votes) },
			set: func(c *domain.Candidate, v string) (err error) { c.Votes, err = strconv.Atoi(v); return err },
		},
	},
}

// =============================================================================
// Users and candidates
// =============================================================================

// EncodeUsers writes users in the record format.
func EncodeUsers(w io.Writer, users []domain.User) error {
	return encode(w, userSchema, users)
}

// DecodeUsers reads users written by EncodeUsers.
func DecodeUsers(r io.Reader) ([]domain.User, error) {
	return decode(r, userSchema)
}

// EncodeCandidates writes candidates in the record format.
func EncodeCandidates(w io.Writer, candidates []domain.Candidate) error {
	return encode(w, candidateSchema, candidates)
}

// DecodeCandidates reads candidates written by EncodeCandidates.
func DecodeCandidates(r io.Reader) ([]domain.Candidate, error) {
	return decode(r, candidateSchema)
}

func encode[T any](w io.Writer, s schema[T], records []T) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s=%d\n\n", s.header(), len(records))
	for i := range records {
		k := i + 1
		fmt.Fprintf(bw, "%s_%d_START\n", s.kind, k)
		for _, f := range s.fields {
			fmt.Fprintf(bw, "%s=%s\n", f.key, f.get(&records[i]))
		}
		fmt.Fprintf(bw, "%s_%d_END\n\n", s.kind, k)
	}

	return bw.Flush()
}

func decode[T any](r io.Reader, s schema[T]) ([]T, error) {
	sc := newScanner(r)

	total, lineNo, err := readHeader(sc, s.header())
	if err != nil {
		return nil, err
	}

	records := make([]T, 0, min(total, 1024))
	var (
		current *T
		inBlock bool
	)
	flush := func() {
		if inBlock {
			records = append(records, *current)
			inBlock = false
		}
	}

	for sc.Scan() && len(records) < total {
		lineNo++
		line := strings.TrimSuffix(sc.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			continue
		}

		if marker, ok := blockMarker(line, s.kind); ok {
			switch marker {
			case "START":
				flush()
				current = new(T)
				inBlock = true
			case "END":
				flush()
			}
			continue
		}

		if !inBlock {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		f, ok := s.lookup(key)
		if !ok {
			continue
		}
		if err := f.set(current, value); err != nil {
			return nil, corrupt(lineNo, "invalid value for %s: %q", key, value)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptRecord, err)
	}
	if len(records) < total {
		flush()
	}

	return records, nil
}

// =============================================================================
// Election window
// =============================================================================

// EncodeElection writes the election window as two key=value lines.
func EncodeElection(w io.Writer, cfg domain.ElectionConfig) error {
	_, err := fmt.Fprintf(w, "%s=%s\n%s=%s\n",
		KeyElectionStart, formatUnix(cfg.Start),
		KeyElectionEnd, formatUnix(cfg.End))
	return err
}

// DecodeElection reads a window written by EncodeElection. Missing keys leave
// the corresponding instant at zero.
func DecodeElection(r io.Reader) (domain.ElectionConfig, error) {
	var cfg domain.ElectionConfig
	sc := newScanner(r)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		key, value, ok := strings.Cut(strings.TrimSuffix(sc.Text(), "\r"), "=")
		if !ok {
			continue
		}

		var target *time.Time
		switch key {
		case KeyElectionStart:
			target = &cfg.Start
		case KeyElectionEnd:
			target = &cfg.End
		default:
			continue
		}

		t, err := parseUnix(value)
		if err != nil {
			return domain.ElectionConfig{}, corrupt(lineNo, "invalid value for %s: %q", key, value)
		}
		*target = t
	}
	if err := sc.Err(); err != nil {
		return domain.ElectionConfig{}, fmt.Errorf("%w: %v", domain.ErrCorruptRecord, err)
	}

	return cfg, nil
}

// =============================================================================
// Helpers
// =============================================================================

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return sc
}

// readHeader skips leading blank lines and parses "TOTAL_<KIND>S=<n>".
func readHeader(sc *bufio.Scanner, header string) (int, int, error) {
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok || key != header {
			return 0, lineNo, corrupt(lineNo, "expected %s header, got %q", header, line)
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return 0, lineNo, corrupt(lineNo, "invalid record count %q", value)
		}
		return n, lineNo, nil
	}
	if err := sc.Err(); err != nil {
		return 0, lineNo, fmt.Errorf("%w: %v", domain.ErrCorruptRecord, err)
	}
	return 0, lineNo, corrupt(lineNo, "missing %s header", header)
}

// blockMarker recognises "<KIND>_<n>_START" and "<KIND>_<n>_END".
func blockMarker(line, kind string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), kind+"_")
	if !ok {
		return "", false
	}
	num, marker, ok := strings.Cut(rest, "_")
	if !ok || (marker != "START" && marker != "END") {
		return "", false
	}
	if _, err := strconv.Atoi(num); err != nil {
		return "", false
	}
	return marker, true
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseBool(v string) (bool, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

func formatUnix(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.Unix(), 10)
}

func parseUnix(v string) (time.Time, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	if n == 0 {
		return time.Time{}, nil
	}
	return time.Unix(n, 0).UTC(), nil
}

func corrupt(lineNo int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", domain.ErrCorruptRecord, lineNo, fmt.Sprintf(format, args...))
}

// IsCorrupt reports whether err came from malformed input.
func IsCorrupt(err error) bool {
	return errors.Is(err, domain.ErrCorruptRecord)
}
