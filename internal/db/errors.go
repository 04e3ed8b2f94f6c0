package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonathan/pathway-advisor/internal/apperr"
)

// classify converts a pgx error into the custody taxonomy.
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

// isTransient reports failures that may succeed on retry: connection loss,
// timeouts, serialization failures, deadlocks and resource exhaustion.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientSQLState(pgErr.Code)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	return pgconn.Timeout(err) || pgconn.SafeToRetry(err)
}

// transientSQLState checks SQLSTATE classes 08 (connection), 40 (transaction
// rollback), 53 (insufficient resources) and 57P (operator intervention).
func transientSQLState(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"),
		strings.HasPrefix(code, "40"),
		strings.HasPrefix(code, "53"),
		strings.HasPrefix(code, "57P"):
		return true
	}
	return false
}
