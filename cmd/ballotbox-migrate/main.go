// Package main is the entry point for the ballotbox migration tool.
// It prepares the SQLite and PostgreSQL schemas and moves the election state
// between the text files and a database.
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
	"github.com/prn-tf/ballotbox/internal/logging"
	"github.com/prn-tf/ballotbox/internal/repository"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	var err error
	switch command {
	case "version":
		fmt.Printf("ballotbox Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		err = runUp(os.Args[2:])

	case "import":
		err = runTransfer("import", os.Args[2:], true)

	case "export":
		err = runTransfer("export", os.Args[2:], false)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Error().Err(err).Str("command", command).Msg("Migration failed")
		os.Exit(1)
	}
}

// setup parses the common flags and returns the configuration, a store
// factory and the database driver to work on.
func setup(name string, args []string) (*config.Config, *repository.Factory, string, func(), error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "path to the configuration file")
	driver := fs.String("driver", "", "database driver (sqlite or postgres); defaults to storage.driver")
	fs.Parse(args)

	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, "", nil, err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, nil, "", nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, "", nil, err
	}

	target := *driver
	if target == "" {
		target = cfg.Storage.Driver
	}
	if target != config.DriverSQLite && target != config.DriverPostgres {
		logCloser.Close()
		return nil, nil, "", nil, fmt.Errorf("driver must be %s or %s, got %q", config.DriverSQLite, config.DriverPostgres, target)
	}

	cleanup := func() { logCloser.Close() }
	return cfg, app.NewStoreFactory(cfg, logger), target, cleanup, nil
}

func runUp(args []string) error {
	_, factory, driver, cleanup, err := setup("up", args)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	// Opening a database store applies every pending migration.
	store, err := factory.OpenDriver(ctx, driver)
	if err != nil {
		return err
	}
	defer store.Close()

	log.Info().Str("driver", driver).Msg("Schema is up to date")
	return nil
}

// runTransfer copies state from the text files into the database when
// toDB is set, and from the database into the text files otherwise.
func runTransfer(name string, args []string, toDB bool) error {
	cfg, factory, driver, cleanup, err := setup(name, args)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	text, err := factory.OpenDriver(ctx, config.DriverText)
	if err != nil {
		return err
	}
	defer text.Close()

	db, err := factory.OpenDriver(ctx, driver)
	if err != nil {
		return err
	}
	defer db.Close()

	from, to := repository.SnapshotStore(db), repository.SnapshotStore(text)
	if toDB {
		from, to = text, db
	}

	snap, err := app.Transfer(ctx, from, to)
	if err != nil {
		return err
	}

	log.Info().
		Str("driver", driver).
		Str("data_dir", cfg.Data.Dir).
		Int("users", len(snap.Users)).
		Int("candidates", len(snap.Candidates)).
		Msgf("State %sed", name)
	return nil
}

func printUsage() {
	fmt.Println(`ballotbox Migration Tool

Usage:
  ballotbox-migrate <command> [arguments]

Commands:
  up          Apply all pending schema migrations
  import      Copy the text files into the database (overwrites the database)
  export      Copy the database into the text files (overwrites the files)
  version     Print version information
  help        Show this help message

Flags:
  -config <path>     Configuration file
  -driver <name>     sqlite or postgres (defaults to storage.driver)

Environment Variables:
  BALLOTBOX_STORAGE_DRIVER          Storage driver
  BALLOTBOX_STORAGE_SQLITE_PATH     SQLite database file
  BALLOTBOX_STORAGE_POSTGRES_HOST   PostgreSQL host (see config.yaml for the rest)

Examples:
  ballotbox-migrate up -driver sqlite
  ballotbox-migrate import -driver postgres
  ballotbox-migrate export -config /etc/ballotbox/config.yaml`)
}
