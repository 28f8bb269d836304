// Package repository defines the persistence contracts used by the
// ticketing services and their MySQL implementation.  Repositories return
// the sentinel values below so that higher layers can distinguish missing
// rows, uniqueness violations and lost conditional updates without
// inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write violates a unique key, e.g. a
// second session for the same (date, time_slot, room_number) or a second
// ticket for the same (user_id, session_id).
var ErrDuplicate = errors.New("duplicate key")

// ErrNoChange indicates a conditional UPDATE matched no row, e.g. marking
// a ticket used when it already is.
var ErrNoChange = errors.New("no change")

const (
	mysqlDuplicateEntry = 1062
	mysqlDeadlock       = 1213
)

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

func isDeadlock(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDeadlock
}

// translate maps driver errors onto the package sentinels, keeping the
// original error in the chain.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return errors.Join(ErrNotFound, err)
	case isUniqueViolation(err):
		return errors.Join(ErrDuplicate, err)
	}
	return err
}
