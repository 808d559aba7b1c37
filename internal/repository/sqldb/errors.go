package sqldb

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pqUniqueViolation = "23505"

// uniqueViolation reports whether err is a unique-constraint failure and, if
// so, which column caused it.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code != pqUniqueViolation {
			return "", false
		}
		// Constraint names follow <table>_<column>_key.
		name := strings.TrimSuffix(pqErr.Constraint, "_key")
		if i := strings.Index(name, "_"); i >= 0 {
			name = name[i+1:]
		}
		return name, true
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		msg := liteErr.Error()
		if liteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT || !strings.Contains(msg, "UNIQUE") {
			return "", false
		}
		// "... UNIQUE constraint failed: users.email (2067)"
		column := msg[strings.LastIndex(msg, ".")+1:]
		if i := strings.IndexAny(column, " ("); i >= 0 {
			column = column[:i]
		}
		return column, true
	}
	return "", false
}
