// Package console implements the interactive terminal menus of ballotbox.
// It reads answers line by line from an io.Reader and writes prompts and
// reports to an io.Writer, so the whole flow can be driven by a script.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/ballotbox/internal/app"
	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/service"
)

const (
	rule     = "========================================"
	wideRule = "========================================================================"
	thinRule = "---------------------------------"

	periodFormat = "2006-01-02 15:04"
)

// errSessionEnded stops the voter menu after the session was invalidated.
var errSessionEnded = errors.New("session ended")

// Console drives the menus of one App.
type Console struct {
	app    *app.App
	in     *bufio.Reader
	out    io.Writer
	loc    *time.Location
	logger zerolog.Logger
}

// New creates a console that reads answers from in and writes to out.
func New(a *app.App, in io.Reader, out io.Writer) *Console {
	loc, err := a.Config.Election.LoadLocation()
	if err != nil {
		loc = time.Local
	}
	return &Console{
		app:    a,
		in:     bufio.NewReader(in),
		out:    out,
		loc:    loc,
		logger: a.Logger.With().Str("component", "console").Logger(),
	}
}

// Run shows the main menu until the user exits, the input ends or ctx is
// cancelled. The caller performs the shutdown sequence afterwards.
func (c *Console) Run(ctx context.Context) error {
	c.printf("\n%s\n   GENERAL ELECTION VOTING SYSTEM\n%s\n", rule, rule)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.printf("\n%s\n         MAIN OPTIONS\n%s\n", thinRule, thinRule)
		c.printf("1. Register\n")
		c.printf("2. Login\n")
		c.printf("3. Admin Panel\n")
		c.printf("4. Exit\n")

		choice, err := c.readInt("\nEnter your choice: ")
		if err != nil {
			return endOfInput(err)
		}

		switch choice {
		case 1:
			err = c.register(ctx)
		case 2:
			err = c.login(ctx)
		case 3:
			err = c.adminPanel(ctx)
		case 4:
			c.success("Thank you for using the Voting System!")
			return nil
		default:
			c.failure("Invalid choice! Please try again.")
		}
		if err != nil {
			return endOfInput(err)
		}
	}
}

// endOfInput treats a closed input stream as a normal exit.
func endOfInput(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// =============================================================================
// Input
// =============================================================================

// prompt writes label and reads one line without its line terminator.
func (c *Console) prompt(label string) (string, error) {
	c.printf("%s", label)

	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readInt reads a number. Unparseable input yields -1, which every caller
// rejects as out of range.
func (c *Console) readInt(label string) (int, error) {
	line, err := c.prompt(label)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return -1, nil
	}
	return n, nil
}

// =============================================================================
// Output
// =============================================================================

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) header(title string) {
	c.printf("\n%s\n  %s\n%s\n", rule, title, rule)
}

func (c *Console) box(title string) {
	c.printf("\n%s\n        %s\n%s\n", rule, title, rule)
}

func (c *Console) success(msg string) {
	c.printf("\n[SUCCESS] %s\n", msg)
}

func (c *Console) failure(msg string) {
	c.printf("\n[ERROR] %s\n", msg)
}

func (c *Console) info(msg string) {
	c.printf("\n[INFO] %s\n", msg)
}

// unsaved warns that a change is held in memory only.
func (c *Console) unsaved(persisted bool) {
	if !persisted {
		c.printf("[WARNING] The change could not be saved and may be lost on exit.\n")
	}
}

func (c *Console) timestamp(t time.Time) string {
	return t.In(c.loc).Format(domain.DisplayTimeFormat)
}

func (c *Console) now() time.Time {
	return c.app.State.Now()
}

var messages = []struct {
	err  error
	text string
}{
	{domain.ErrEmptyFullName, "Full name cannot be empty!"},
	{domain.ErrInvalidNID, "Invalid NID! Must be 10-17 digits only."},
	{domain.ErrUserAlreadyExists, "This NID is already registered!"},
	{domain.ErrWeakPassword, "Weak password! Must have 8+ chars, uppercase, lowercase, and digit."},
	{domain.ErrUserCapacity, "Registration limit reached!"},
	{domain.ErrInvalidCredentials, "Invalid NID number or password!"},
	{domain.ErrSessionExpired, "Session timeout! Please login again."},
	{domain.ErrSessionNotFound, "Session timeout! Please login again."},
	{domain.ErrElectionNotStarted, "Election has not started yet!"},
	{domain.ErrElectionEnded, "Election has ended!"},
	{domain.ErrAlreadyVoted, "You have already cast your vote!"},
	{domain.ErrInvalidCandidate, "Invalid candidate ID!"},
	{domain.ErrCandidateHasVotes, "Candidate has received votes and cannot be removed!"},
	{domain.ErrCandidateCapacity, "Maximum candidate limit reached!"},
	{domain.ErrAdminAccessDenied, "Invalid admin password!"},
	{domain.ErrInvalidDuration, "Invalid duration! Must be 1-365 days."},
	{domain.ErrInvalidPeriod, "End time must be after start time!"},
	{service.ErrStateBusy, "The election is being updated elsewhere. Please try again."},
}

// message returns the text shown to people for err.
func message(err error) string {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.text
		}
	}
	msg := err.Error()
	if msg == "" {
		return "Operation failed!"
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "!"
}
