package repository

import (
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// IsStructuralError reports whether the store rejected a write because of
// its shape rather than its data being a duplicate: unknown columns, type
// mismatches, constraint violations other than unique keys.
func IsStructuralError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23505" {
			return false
		}
		switch pqErr.Code.Class() {
		case "22", "23", "42":
			return true
		}
		return false
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrError, sqlite3.ErrMismatch:
			return true
		case sqlite3.ErrConstraint:
			return liteErr.ExtendedCode != sqlite3.ErrConstraintUnique &&
				liteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey
		}
	}
	return false
}
