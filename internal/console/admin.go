package console

import (
	"context"
	"errors"
	"fmt"

	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/repository/memory"
	"github.com/prn-tf/ballotbox/internal/service"
)

func (c *Console) adminPanel(ctx context.Context) error {
	c.header("ADMIN PANEL")

	passphrase, err := c.prompt("Enter Admin Password: ")
	if err != nil {
		return err
	}
	if err := c.app.Admin.Authenticate(passphrase); err != nil {
		c.failure(message(err))
		return nil
	}
	c.success("Admin access granted!")

	for {
		c.header("ADMIN PANEL")
		c.printf("1. View All Statistics\n")
		c.printf("2. Export Results\n")
		c.printf("3. Reset Election\n")
		c.printf("4. Add Candidate\n")
		c.printf("5. Remove Candidate\n")
		c.printf("6. Create Backup\n")
		c.printf("7. Set Election Period\n")
		c.printf("8. Exit Admin Panel\n")
		c.printf("%s\n", rule)

		choice, err := c.readInt("Enter your choice: ")
		if err != nil {
			return err
		}

		switch choice {
		case 1:
			c.showStatistics()
		case 2:
			c.exportResults(ctx)
		case 3:
			err = c.resetElection(ctx)
		case 4:
			err = c.addCandidate(ctx)
		case 5:
			err = c.removeCandidate(ctx)
		case 6:
			c.createBackup(ctx)
		case 7:
			err = c.setElectionPeriod(ctx)
		case 8:
			c.info("Exiting admin panel...")
			return nil
		default:
			c.failure("Invalid choice!")
		}
		if err != nil {
			return err
		}
	}
}

func (c *Console) exportResults(ctx context.Context) {
	out, err := c.app.Admin.ExportResults(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("export failed")
		c.failure("Failed to export results!")
		return
	}

	c.success(fmt.Sprintf("Results exported to '%s'", out.Name))
	for _, loc := range out.Locations {
		c.printf("[+] %s\n", loc)
	}
}

func (c *Console) resetElection(ctx context.Context) error {
	c.printf("\n[WARNING] This will reset all votes and voting status!\n")
	phrase, err := c.prompt(fmt.Sprintf("Type '%s' to confirm: ", service.ResetPhrase))
	if err != nil {
		return err
	}

	out, err := c.app.Admin.ResetElection(ctx, phrase)
	switch {
	case errors.Is(err, domain.ErrConfirmationRequired):
		c.info("Reset cancelled.")
		return nil
	case err != nil:
		c.failure(message(err))
		return nil
	}

	c.success("Election reset successfully!")
	c.printf("All votes cleared\n")
	c.printf("All voting status reset\n")
	c.printf("Users can now vote again\n")
	c.unsaved(out.Persisted)
	return nil
}

func (c *Console) addCandidate(ctx context.Context) error {
	limit := c.app.Config.Limits.MaxCandidates
	if limit <= 0 {
		limit = memory.DefaultMaxCandidates
	}
	if len(c.app.Election.ListCandidates()) >= limit {
		c.failure(message(domain.ErrCandidateCapacity))
		c.printf("[!] Maximum %d candidates allowed.\n", limit)
		return nil
	}

	c.header("ADD NEW CANDIDATE")

	var input service.AddCandidateInput
	var err error
	if input.Name, err = c.prompt("Enter Candidate Name: "); err != nil {
		return err
	}
	if input.Party, err = c.prompt("Enter Party Name: "); err != nil {
		return err
	}
	if input.Age, err = c.readInt("Enter Age: "); err != nil {
		return err
	}
	if input.Education, err = c.prompt("Enter Education: "); err != nil {
		return err
	}
	if input.Manifesto, err = c.prompt("Enter Manifesto: "); err != nil {
		return err
	}

	out, err := c.app.Admin.AddCandidate(ctx, input)
	if err != nil {
		c.failure(message(err))
		return nil
	}

	cand := out.Candidate
	c.success("Candidate added successfully!")
	c.box("CANDIDATE DETAILS")
	c.printf(" ID:        %d\n", cand.ID)
	c.printf(" Name:      %s\n", cand.Name)
	c.printf(" Party:     %s\n", cand.Party)
	c.printf(" Age:       %d\n", cand.Age)
	c.printf(" Education: %s\n", cand.Education)
	c.printf(" Manifesto: %s\n", cand.Manifesto)
	c.printf("%s\n", rule)
	c.unsaved(out.Persisted)
	return nil
}

func (c *Console) removeCandidate(ctx context.Context) error {
	c.header("REMOVE CANDIDATE")
	c.showCandidates()

	id, err := c.readInt("\nEnter Candidate ID to remove: ")
	if err != nil {
		return err
	}
	cand, err := c.app.Election.CandidateDetails(id)
	if err != nil {
		c.failure(message(err))
		return nil
	}

	c.printf("\n[!] CONFIRMATION REQUIRED\n")
	c.printf("You are about to remove:\n")
	c.printf("=> %s (%s)\n", cand.Name, cand.Party)
	c.printf("=> Current votes: %d\n", cand.Votes)
	answer, err := c.prompt("\nAre you sure? (Y/N): ")
	if err != nil {
		return err
	}

	out, err := c.app.Admin.RemoveCandidate(ctx, service.RemoveCandidateInput{ID: id, Confirmation: answer})
	switch {
	case errors.Is(err, domain.ErrConfirmationRequired):
		c.info("Removal cancelled.")
		return nil
	case err != nil:
		c.failure(message(err))
		return nil
	}

	c.success("Candidate removed successfully!")
	c.printf("[+] Removed: %s\n", out.Candidate.Name)
	c.printf("[+] Total candidates now: %d\n", out.Remaining)
	c.unsaved(out.Persisted)
	return nil
}

func (c *Console) createBackup(ctx context.Context) {
	c.header("CREATE BACKUP")
	c.printf("Creating backup files...\n\n")

	artifacts, err := c.app.Admin.CreateBackup(ctx)
	labels := []string{"Users", "Candidates"}
	for i, a := range artifacts {
		c.printf("[+] %s backup created: %s\n", labels[i%len(labels)], a.Name)
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("backup failed")
		c.failure(message(err))
		return
	}

	stats := c.app.Election.Statistics()
	c.success("Backup created successfully!")
	c.box("BACKUP SUMMARY")
	c.printf(" Users backed up:      %d\n", stats.RegisteredUsers)
	c.printf(" Candidates backed up: %d\n", stats.TotalCandidates)
	c.printf(" Files created:        %d\n", len(artifacts))
	c.printf("%s\n", rule)
}

func (c *Console) setElectionPeriod(ctx context.Context) error {
	c.header("SET ELECTION PERIOD")
	c.printf("Choose configuration method:\n")
	c.printf("1. Set duration in days\n")
	c.printf("2. Set custom start and end date/time\n")
	c.printf("3. Start immediately for X days\n")

	mode, err := c.readInt("\nEnter your choice: ")
	if err != nil {
		return err
	}

	input := service.SetElectionPeriodInput{Mode: domain.PeriodMode(mode)}
	switch input.Mode {
	case domain.PeriodDurationFromNow, domain.PeriodStartImmediately:
		if input.Days, err = c.readInt("\nEnter election duration in days (1-365): "); err != nil {
			return err
		}
	case domain.PeriodExplicit:
		if input.Start, err = c.readDateTime("START"); err != nil {
			return err
		}
		if input.End, err = c.readDateTime("END"); err != nil {
			return err
		}
	default:
		c.failure("Invalid choice!")
		return nil
	}

	out, err := c.app.Admin.SetElectionPeriod(ctx, input)
	if err != nil {
		c.failure(message(err))
		return nil
	}

	window := out.Election
	duration := window.Duration()
	c.success("Election period set successfully!")
	c.box("ELECTION PERIOD DETAILS")
	c.printf(" Start:    %s\n", c.timestamp(window.Start))
	c.printf(" End:      %s\n", c.timestamp(window.End))
	c.printf(" Duration: %d days, %d hours\n", int(duration.Hours())/24, int(duration.Hours())%24)
	c.printf("%s\n", rule)

	now := c.now()
	switch out.Status {
	case domain.StatusNotStarted:
		c.printf("\n[STATUS] Election has NOT started yet\n")
		c.printf("         Starts in %d days\n", int(window.Start.Sub(now).Hours())/24)
	case domain.StatusEnded:
		c.printf("\n[STATUS] Election has ENDED\n")
	default:
		c.printf("\n[STATUS] Election is ACTIVE\n")
		c.printf("         %d days remaining\n", int(window.End.Sub(now).Hours())/24)
	}
	c.unsaved(out.Persisted)
	return nil
}

func (c *Console) readDateTime(label string) (domain.CivilDateTime, error) {
	c.printf("\n--- SET %s DATE & TIME ---\n", label)

	var dt domain.CivilDateTime
	fields := []struct {
		prompt string
		dst    *int
	}{
		{"Enter year (YYYY): ", &dt.Year},
		{"Enter month (1-12): ", &dt.Month},
		{"Enter day (1-31): ", &dt.Day},
		{"Enter hour (0-23): ", &dt.Hour},
		{"Enter minute (0-59): ", &dt.Minute},
	}
	for _, f := range fields {
		v, err := c.readInt(f.prompt)
		if err != nil {
			return dt, err
		}
		*f.dst = v
	}
	return dt, nil
}
