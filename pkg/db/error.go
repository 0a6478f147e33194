package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrContention marks a transient lock/serialization failure. Callers may
// retry with backoff; the failed operation left no partial state behind.
var ErrContention = errors.New("contention")

// IsDuplicateKeyErr reports whether err is a unique-constraint violation on
// any supported dialect.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsContentionErr reports whether err is a lock wait timeout, deadlock, or
// serialization failure that is safe to retry.
func IsContentionErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrContention) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := err.Error()
	switch {
	// PostgreSQL: 55P03 lock_not_available, 40001 serialization_failure, 40P01 deadlock_detected
	case strings.Contains(msg, "could not obtain lock"),
		strings.Contains(msg, "could not serialize access"),
		strings.Contains(msg, "deadlock detected"):
		return true
	// MySQL: 1205 lock wait timeout, 1213 deadlock
	case strings.Contains(msg, "Error 1205"),
		strings.Contains(msg, "Error 1213"):
		return true
	// SQLite
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"):
		return true
	}

	return false
}

// ClassifyErr rewraps transient storage errors as ErrContention so callers
// get a single retryable sentinel regardless of dialect.
func ClassifyErr(err error) error {
	if err == nil {
		return nil
	}
	if IsContentionErr(err) {
		return errors.Join(ErrContention, err)
	}
	return err
}
