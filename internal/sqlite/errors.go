package sqlite

import (
	"context"
	"errors"

	"github.com/jonathan/pathway-advisor/internal/apperr"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// classify converts a driver error into the custody taxonomy.
// fallback selects WRITE_FAILED or READ_FAILED.
func classify(op string, err error, fallback apperr.Code) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	retryable := isTransient(err)
	if fallback == apperr.CodeReadFailed {
		return apperr.ReadFailed(op, err, retryable)
	}
	return apperr.WriteFailed(op, err, retryable)
}

// isTransient reports lock contention and deadline expiry.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}
