// Package sqlite keeps the election snapshot in a single embedded database
// file. It uses the pure Go modernc.org/sqlite driver, so no CGO is needed.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rs/zerolog"
)

const memoryPath = ":memory:"

//go:embed migrations/*.up.sql
var migrationsFS embed.FS

// Config holds the database file location and the pragmas applied to
// every connection.
type Config struct {
	Path            string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	JournalMode     string
	BusyTimeout     int // milliseconds
	SynchronousMode string
}

// DefaultConfig returns settings for a single writer in WAL mode.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
		JournalMode:     "WAL",
		BusyTimeout:     5000,
		SynchronousMode: "NORMAL",
	}
}

// dsn renders cfg as a modernc file URI with one _pragma per setting.
func (cfg Config) dsn() string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode("+cfg.JournalMode+")")
	q.Add("_pragma", "busy_timeout("+strconv.Itoa(cfg.BusyTimeout)+")")
	q.Add("_pragma", "synchronous("+cfg.SynchronousMode+")")
	return "file:" + cfg.Path + "?" + q.Encode()
}

// DB is an open election database.
type DB struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// NewDB creates the parent directory if needed, opens the file and pings it.
func NewDB(ctx context.Context, cfg Config, logger zerolog.Logger) (*DB, error) {
	if cfg.Path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", cfg.Path, err)
		}
	}

	conn, err := sql.Open("sqlite", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Path, err)
	}

	conns := max(cfg.MaxOpenConns, 1)
	conn.SetMaxOpenConns(conns)
	conn.SetMaxIdleConns(conns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite database %s unusable: %w", cfg.Path, err)
	}

	logger.Info().
		Str("path", cfg.Path).
		Str("journal_mode", cfg.JournalMode).
		Msg("election database opened")

	return &DB{db: conn, path: cfg.Path, logger: logger}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// WithTx commits when fn returns nil and rolls back on error or panic.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// =============================================================================
// Schema
// =============================================================================

// Version returns the schema version recorded in the user_version pragma.
func (db *DB) Version(ctx context.Context) (int, error) {
	var v int
	if err := db.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// Migrate applies the embedded migrations above the current version. Each
// file runs in its own transaction together with the version bump.
func (db *DB) Migrate(ctx context.Context) error {
	current, err := db.Version(ctx)
	if err != nil {
		return err
	}

	steps, err := migrationSteps()
	if err != nil {
		return err
	}

	for _, step := range steps {
		if step.version <= current {
			continue
		}
		body, err := fs.ReadFile(migrationsFS, step.file)
		if err != nil {
			return err
		}

		err = db.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(body)); err != nil {
				return err
			}
			// PRAGMA does not accept bind parameters.
			_, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, step.version))
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", step.file, err)
		}

		db.logger.Info().Int("version", step.version).Str("path", db.path).Msg("schema migrated")
	}
	return nil
}

type migrationStep struct {
	version int
	file    string
}

// migrationSteps lists the embedded NNNNNN_name.up.sql files by version.
func migrationSteps() ([]migrationStep, error) {
	files, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	if err != nil {
		return nil, err
	}

	steps := make([]migrationStep, 0, len(files))
	for _, file := range files {
		prefix, _, _ := strings.Cut(filepath.Base(file), "_")
		v, err := strconv.Atoi(prefix)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("migration %s has no numeric version prefix", file)
		}
		steps = append(steps, migrationStep{version: v, file: file})
	}

	slices.SortFunc(steps, func(a, b migrationStep) int { return a.version - b.version })
	return steps, nil
}
