// Package main is the entry point for the ballotbox admin CLI.
// It runs single administrative operations against the persisted election
// state without the interactive menus.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/ballotbox/internal/app"
	"github.com/prn-tf/ballotbox/internal/config"
	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/logging"
	"github.com/prn-tf/ballotbox/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const dateTimeLayout = "2006-01-02 15:04"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "version":
		fmt.Printf("ballotbox Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "stats":
		err = runStats(args)

	case "export":
		err = runExport(args)

	case "backup":
		err = runBackup(args)

	case "reset":
		err = runReset(args)

	case "candidate":
		err = runCandidate(args)

	case "period":
		err = runPeriod(args)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// Setup
// =============================================================================

// commonFlags are accepted by every command that touches the election.
type commonFlags struct {
	config     *string
	passphrase *string
}

func newFlagSet(name string) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return fs, commonFlags{
		config:     fs.String("config", "", "path to the configuration file"),
		passphrase: fs.String("passphrase", "", "admin passphrase"),
	}
}

// open loads the configuration and state and authenticates the administrator.
// The returned function releases the app.
func open(ctx context.Context, flags commonFlags) (*app.App, func(), error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(*flags.config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logCloser.Close()
		return nil, nil, err
	}
	release := func() {
		if err := a.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to release resources")
		}
		logCloser.Close()
	}

	if err := a.Admin.Authenticate(*flags.passphrase); err != nil {
		release()
		return nil, nil, err
	}
	return a, release, nil
}

// =============================================================================
// Commands
// =============================================================================

func runStats(args []string) error {
	fs, flags := newFlagSet("stats")
	fs.Parse(args)

	ctx := context.Background()
	a, release, err := open(ctx, flags)
	if err != nil {
		return err
	}
	defer release()

	stats := a.Election.Statistics()
	fmt.Printf("Total Registered Users:  %d\n", stats.RegisteredUsers)
	fmt.Printf("Users Who Voted:         %d\n", stats.VotedUsers)
	fmt.Printf("Users Who Haven't Voted: %d\n", stats.NotVotedUsers)
	fmt.Printf("Voter Turnout:           %.2f%%\n", stats.Turnout)
	fmt.Printf("Total Votes Cast:        %d\n", stats.TotalVotes)
	fmt.Printf("Total Candidates:        %d\n", stats.TotalCandidates)
	fmt.Printf("Election Start:          %s\n", stats.Period.Start.Local().Format(dateTimeLayout))
	fmt.Printf("Election End:            %s\n", stats.Period.End.Local().Format(dateTimeLayout))
	fmt.Printf("Status:                  %s\n", stats.Status)

	tally := a.Election.Tally()
	fmt.Println()
	for _, r := range tally.Results {
		fmt.Printf("%-4d %-25s %-25s %-10d %.2f%%\n",
			r.Candidate.ID, r.Candidate.Name, r.Candidate.Party, r.Candidate.Votes, r.Percent)
	}
	if tally.Winner != nil {
		fmt.Printf("\nLeader: %s (%s) with %d votes\n", tally.Winner.Name, tally.Winner.Party, tally.Winner.Votes)
	}
	return nil
}

func runExport(args []string) error {
	fs, flags := newFlagSet("export")
	fs.Parse(args)

	ctx := context.Background()
	a, release, err := open(ctx, flags)
	if err != nil {
		return err
	}
	defer release()

	out, err := a.Admin.ExportResults(ctx)
	if err != nil {
		return err
	}
	printArtifact(*out)
	return nil
}

func runBackup(args []string) error {
	fs, flags := newFlagSet("backup")
	fs.Parse(args)

	ctx := context.Background()
	a, release, err := open(ctx, flags)
	if err != nil {
		return err
	}
	defer release()

	artifacts, err := a.Admin.CreateBackup(ctx)
	for _, artifact := range artifacts {
		printArtifact(artifact)
	}
	return err
}

func runReset(args []string) error {
	fs, flags := newFlagSet("reset")
	confirm := fs.String("confirm", "", "type "+service.ResetPhrase+" to confirm")
	fs.Parse(args)

	ctx := context.Background()
	a, release, err := open(ctx, flags)
	if err != nil {
		return err
	}
	defer release()

	out, err := a.Admin.ResetElection(ctx, *confirm)
	if err != nil {
		return err
	}
	fmt.Printf("Election reset: %d votes cleared, %d voters may vote again\n", out.VotesCleared, out.VotersCleared)
	warnUnsaved(out.Persisted)
	return nil
}

func runCandidate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("candidate requires a subcommand: add or remove")
	}

	switch args[0] {
	case "add":
		fs, flags := newFlagSet("candidate add")
		name := fs.String("name", "", "candidate name")
		party := fs.String("party", "", "party name")
		age := fs.Int("age", 0, "candidate age (18-100)")
		education := fs.String("education", "", "education")
		manifesto := fs.String("manifesto", "", "manifesto")
		fs.Parse(args[1:])

		ctx := context.Background()
		a, release, err := open(ctx, flags)
		if err != nil {
			return err
		}
		defer release()

		out, err := a.Admin.AddCandidate(ctx, service.AddCandidateInput{
			Name:      *name,
			Party:     *party,
			Education: *education,
			Age:       *age,
			Manifesto: *manifesto,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added candidate %d: %s (%s)\n", out.Candidate.ID, out.Candidate.Name, out.Candidate.Party)
		warnUnsaved(out.Persisted)
		return nil

	case "remove":
		fs, flags := newFlagSet("candidate remove")
		id := fs.Int("id", 0, "candidate id")
		yes := fs.Bool("yes", false, "confirm the removal")
		fs.Parse(args[1:])

		ctx := context.Background()
		a, release, err := open(ctx, flags)
		if err != nil {
			return err
		}
		defer release()

		confirmation := "N"
		if *yes {
			confirmation = "Y"
		}
		out, err := a.Admin.RemoveCandidate(ctx, service.RemoveCandidateInput{ID: *id, Confirmation: confirmation})
		if err != nil {
			return err
		}
		fmt.Printf("Removed: %s\nTotal candidates now: %d\n", out.Candidate.Name, out.Remaining)
		warnUnsaved(out.Persisted)
		return nil

	default:
		return fmt.Errorf("unknown candidate subcommand: %s", args[0])
	}
}

func runPeriod(args []string) error {
	fs, flags := newFlagSet("period")
	days := fs.Int("days", 0, "election length in days from now (1-365)")
	start := fs.String("start", "", "start as \""+dateTimeLayout+"\"")
	end := fs.String("end", "", "end as \""+dateTimeLayout+"\"")
	fs.Parse(args)

	input := service.SetElectionPeriodInput{Mode: domain.PeriodDurationFromNow, Days: *days}
	if *start != "" || *end != "" {
		s, err := parseCivil(*start)
		if err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
		e, err := parseCivil(*end)
		if err != nil {
			return fmt.Errorf("invalid -end: %w", err)
		}
		input = service.SetElectionPeriodInput{Mode: domain.PeriodExplicit, Start: s, End: e}
	}

	ctx := context.Background()
	a, release, err := open(ctx, flags)
	if err != nil {
		return err
	}
	defer release()

	out, err := a.Admin.SetElectionPeriod(ctx, input)
	if err != nil {
		return err
	}
	fmt.Printf("Election period: %s to %s (%s)\n",
		out.Election.Start.Local().Format(dateTimeLayout),
		out.Election.End.Local().Format(dateTimeLayout),
		out.Status)
	warnUnsaved(out.Persisted)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func parseCivil(s string) (domain.CivilDateTime, error) {
	t, err := time.Parse(dateTimeLayout, s)
	if err != nil {
		return domain.CivilDateTime{}, err
	}
	return domain.CivilDateTime{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}, nil
}

func printArtifact(a service.Artifact) {
	fmt.Printf("%s\n", a.Name)
	for _, loc := range a.Locations {
		fmt.Printf("  -> %s\n", loc)
	}
}

func warnUnsaved(persisted bool) {
	if !persisted {
		fmt.Fprintln(os.Stderr, "Warning: the change could not be saved")
	}
}

func printUsage() {
	fmt.Println(`ballotbox Admin CLI

Usage:
  ballotbox-admin <command> [arguments]

Commands:
  stats       Show participation statistics and the current tally
  export      Write the results report to every artifact sink
  backup      Write timestamped users and candidates backups
  reset       Clear every vote (requires -confirm ` + service.ResetPhrase + `)
  candidate   Manage candidates (add, remove)
  period      Set the election window
  version     Print version information
  help        Show this help message

Every command except version and help accepts:
  -config <path>       Configuration file
  -passphrase <value>  Admin passphrase

Examples:
  ballotbox-admin stats -passphrase secret
  ballotbox-admin candidate add -passphrase secret -name "Jane Roe" -party "Unity" -age 40
  ballotbox-admin candidate remove -passphrase secret -id 3 -yes
  ballotbox-admin period -passphrase secret -days 14
  ballotbox-admin period -passphrase secret -start "2026-11-01 08:00" -end "2026-11-01 20:00"
  ballotbox-admin reset -passphrase secret -confirm ` + service.ResetPhrase + `

Use "ballotbox-admin <command> -h" for more information about a command.`)
}
