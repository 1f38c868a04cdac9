package sqlite

import (
	"database/sql"
	"errors"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteErrorCode returns the extended result code of a driver error, or 0.
func sqliteErrorCode(err error) int {
	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()
	}
	return 0
}

// isUniqueViolation reports a duplicate email or primary key.
func isUniqueViolation(err error) bool {
	switch sqliteErrorCode(err) {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// isForeignKeyViolation reports content whose author does not exist.
func isForeignKeyViolation(err error) bool {
	return sqliteErrorCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
