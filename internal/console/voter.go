package console

import (
	"context"
	"errors"

	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/service"
)

func (c *Console) register(ctx context.Context) error {
	c.header("USER REGISTRATION")

	name, err := c.prompt("1. Enter your Full Name: ")
	if err != nil {
		return err
	}
	nid, err := c.prompt("2. Enter your NID Number (10-17 digits): ")
	if err != nil {
		return err
	}
	password, err := c.prompt("3. Enter a Password (min 8 chars, 1 uppercase, 1 lowercase, 1 digit): ")
	if err != nil {
		return err
	}

	out, err := c.app.Users.Register(ctx, service.RegisterInput{
		FullName: name,
		NID:      nid,
		Password: password,
	})
	if err != nil {
		c.failure(message(err))
		return nil
	}

	c.success("Registration successful!")
	c.printf("Name: %s\n", out.User.FullName)
	c.printf("NID: %s\n", out.User.NID)
	c.info("You can now login with your NID number.")
	c.unsaved(out.Persisted)
	return nil
}

func (c *Console) login(ctx context.Context) error {
	c.header("USER LOGIN")

	nid, err := c.prompt("1. Enter your NID Number: ")
	if err != nil {
		return err
	}
	password, err := c.prompt("2. Enter your Password: ")
	if err != nil {
		return err
	}

	user, err := c.app.Users.Authenticate(ctx, nid, password)
	if err != nil {
		c.failure(message(err))
		return nil
	}

	sess := c.app.Sessions.Create(*user, c.now())
	c.success("Login successful!")
	c.printf("Welcome, %s!\n", user.FullName)

	return c.voterMenu(ctx, sess)
}

// voterMenu loops until logout or session expiry. The session is checked
// before the menu is shown and again once the choice is read, so an idle
// voter is never served.
func (c *Console) voterMenu(ctx context.Context, sess service.Session) error {
	for {
		if _, err := c.app.Sessions.Check(sess.Token, c.now()); err != nil {
			c.failure(message(err))
			return nil
		}

		c.header("MAIN MENU")
		c.printf("Logged in as: %s\n", sess.FullName)
		c.printf("%s\n", rule)
		c.printf("1. Cast Vote\n")
		c.printf("2. Show All Candidates\n")
		c.printf("3. View Candidate Details\n")
		c.printf("4. Search Candidate\n")
		c.printf("5. Show Results\n")
		c.printf("6. View Statistics\n")
		c.printf("7. Logout\n")
		c.printf("%s\n", rule)

		choice, err := c.readInt("Enter your choice: ")
		if err != nil {
			return err
		}
		if _, err := c.app.Sessions.Check(sess.Token, c.now()); err != nil {
			c.failure(message(err))
			return nil
		}

		switch choice {
		case 1:
			err = c.castVote(ctx, sess)
		case 2:
			c.showCandidates()
		case 3:
			err = c.showCandidateDetails()
		case 4:
			err = c.searchCandidates()
		case 5:
			err = c.showResults(ctx, sess)
		case 6:
			c.showStatistics()
		case 7:
			if err := c.app.Sessions.Logout(sess.Token); err != nil {
				c.logger.Debug().Err(err).Msg("logout of unknown session")
			}
			c.success("Logged out successfully!")
			c.printf("Goodbye, %s!\n", sess.FullName)
			return nil
		default:
			c.failure("Invalid choice! Please try again.")
		}

		if errors.Is(err, errSessionEnded) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// voterFailure reports err and ends the menu when the session is gone.
func (c *Console) voterFailure(err error) error {
	c.failure(message(err))
	if errors.Is(err, domain.ErrSessionExpired) || errors.Is(err, domain.ErrSessionNotFound) {
		return errSessionEnded
	}
	return nil
}

func (c *Console) castVote(ctx context.Context, sess service.Session) error {
	if _, err := c.app.Voting.Eligibility(ctx, sess.Token); err != nil {
		var voted *domain.AlreadyVotedError
		if errors.As(err, &voted) {
			c.failure(message(err))
			c.printf("[!] One person can only vote once.\n")
			c.printf("[INFO] You voted on: %s\n", c.timestamp(voted.VotedAt))
			return nil
		}
		return c.voterFailure(err)
	}

	c.header("CAST YOUR VOTE")
	c.showCandidates()

	id, err := c.readInt("\nEnter the ID of the candidate you want to vote for: ")
	if err != nil {
		return err
	}
	candidate, err := c.app.Election.CandidateDetails(id)
	if err != nil {
		c.failure(message(err))
		return nil
	}

	c.printf("\n[!] CONFIRMATION REQUIRED\n")
	c.printf("You are about to vote for:\n")
	c.printf("=> %s (%s)\n", candidate.Name, candidate.Party)
	answer, err := c.prompt("\nAre you sure? (Y/N): ")
	if err != nil {
		return err
	}
	if !domain.IsAffirmative(answer) {
		c.info("Vote cancelled.")
		return nil
	}

	receipt, err := c.app.Voting.CastVote(ctx, service.CastVoteInput{
		SessionToken: sess.Token,
		CandidateID:  id,
	})
	if err != nil {
		return c.voterFailure(err)
	}

	c.success("Vote cast successfully!")
	c.box("VOTING RECEIPT")
	c.printf(" Voter: %s\n", receipt.Voter.FullName)
	c.printf(" Candidate: %s\n", receipt.Candidate.Name)
	c.printf(" Party: %s\n", receipt.Candidate.Party)
	c.printf(" Time: %s\n", c.timestamp(receipt.VotedAt))
	c.printf("%s\n", rule)
	c.printf("\nThank you for voting, %s!\n", receipt.Voter.FullName)
	c.unsaved(receipt.Persisted)
	return nil
}

func (c *Console) showCandidates() {
	c.header("LIST OF CANDIDATES")
	c.printf("%-4s %-25s %-25s\n", "ID", "Name", "Party")
	c.printf("%s\n", rule)
	for _, cand := range c.app.Election.ListCandidates() {
		c.printf("%-4d %-25s %-25s\n", cand.ID, cand.Name, cand.Party)
	}
}

func (c *Console) showCandidateDetails() error {
	id, err := c.readInt("\nEnter Candidate ID to view details: ")
	if err != nil {
		return err
	}
	cand, err := c.app.Election.CandidateDetails(id)
	if err != nil {
		c.failure(message(err))
		return nil
	}

	c.box("CANDIDATE PROFILE")
	c.printf(" Name:      %s\n", cand.Name)
	c.printf(" Party:     %s\n", cand.Party)
	c.printf(" Age:       %d\n", cand.Age)
	c.printf(" Education: %s\n", cand.Education)
	c.printf(" Manifesto: %s\n", cand.Manifesto)
	c.printf("%s\n", rule)
	return nil
}

func (c *Console) searchCandidates() error {
	term, err := c.prompt("\nEnter candidate name or party to search: ")
	if err != nil {
		return err
	}

	c.header("SEARCH RESULTS")
	found := c.app.Election.Search(term)
	for _, cand := range found {
		c.printf("[+] [%d] %s - %s\n", cand.ID, cand.Name, cand.Party)
	}
	if len(found) == 0 {
		c.failure("No candidates found matching your search.")
	}
	return nil
}

func (c *Console) showResults(ctx context.Context, sess service.Session) error {
	tally, err := c.app.Election.Results(ctx, sess.Token)
	if err != nil {
		return c.voterFailure(err)
	}

	c.header("ELECTION RESULTS")
	c.printf("%-25s %-25s %-10s %-12s\n", "Candidate", "Party", "Votes", "Percentage")
	c.printf("%s\n", wideRule)
	for _, r := range tally.Results {
		c.printf("%-25s %-25s %-10d %.2f%%\n", r.Candidate.Name, r.Candidate.Party, r.Candidate.Votes, r.Percent)
	}
	c.printf("%s\n", wideRule)
	c.printf("Total Votes Cast: %d\n", tally.TotalVotes)

	if tally.Winner != nil {
		c.printf("\n[CURRENT LEADER]\n")
		c.printf("   %s (%s) with %d votes\n", tally.Winner.Name, tally.Winner.Party, tally.Winner.Votes)
	} else {
		c.info("No votes cast yet.")
	}
	return nil
}

func (c *Console) showStatistics() {
	stats := c.app.Election.Statistics()

	c.header("ELECTION STATISTICS")
	c.printf("Total Registered Users:  %d\n", stats.RegisteredUsers)
	c.printf("Users Who Voted:         %d\n", stats.VotedUsers)
	c.printf("Users Who Haven't Voted: %d\n", stats.NotVotedUsers)
	c.printf("Voter Turnout:           %.2f%%\n", stats.Turnout)
	c.printf("Total Votes Cast:        %d\n", stats.TotalVotes)
	c.printf("Total Candidates:        %d\n", stats.TotalCandidates)

	c.printf("\nElection Period:\n")
	c.printf("   Start: %s\n", stats.Period.Start.In(c.loc).Format(periodFormat))
	c.printf("   End:   %s\n", stats.Period.End.In(c.loc).Format(periodFormat))
	c.printf("   Status: %s\n", stats.Status)
}
