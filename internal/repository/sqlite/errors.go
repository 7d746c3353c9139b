package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure, such as a duplicated NID.
func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Extended codes disabled on this connection.
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

// isNoRows reports whether a single-row query found nothing, which for the
// snapshot tables means no state has been saved yet.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
