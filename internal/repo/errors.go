package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrUniqueViolation is returned when a write collides with a unique column or primary key.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrSchemaViolation is returned when a value breaks a type, enum or required-column rule.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrUnknownField is returned when filtering on a field the table does not expose.
	ErrUnknownField = errors.New("unknown field")
)

// classify maps driver errors onto the package sentinels, keeping the driver
// message so callers can surface it verbatim.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
		case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL, sqlite3.SQLITE_MISMATCH:
			return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
		}
		if sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			if strings.Contains(sqliteErr.Error(), "UNIQUE") {
				return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
			}
			return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
		}
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
		case "23514", "23502", "22P02", "22003":
			return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
		}
	}
	return err
}
