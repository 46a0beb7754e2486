package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorKind tags a StoreError with how the caller should treat it.
type ErrorKind int

const (
	// KindOther covers store failures that must not be retried.
	KindOther ErrorKind = iota
	// KindRetriableLock marks a deadlock or serialization failure; the
	// upload pipeline may roll back and retry the whole transaction.
	KindRetriableLock
	// KindUniqueViolation marks a unique-constraint conflict, e.g. a
	// duplicate file path.
	KindUniqueViolation
)

// StoreError wraps a failed lookup or insert with an operation name and a
// classification the orchestration layer can branch on without inspecting
// driver-specific error values.
type StoreError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ValidationError reports a candidate record with missing or malformed
// required fields. It is returned before any database access happens.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Msg)
}

// PostgreSQL SQLSTATE codes relevant to the upload pipeline's retry policy.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// Classify wraps a store failure into a StoreError tagged by SQLSTATE, so
// orchestration code can decide on retry without knowing about pgconn.
// Serialization failures can surface at COMMIT under serializable isolation,
// which is why the pipeline classifies commit errors with this too.
func Classify(op string, err error) error {
	kind := KindOther
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			kind = KindRetriableLock
		case codeUniqueViolation:
			kind = KindUniqueViolation
		}
	}
	return &StoreError{Op: op, Kind: kind, Err: err}
}

// IsRetriableLock reports whether err is a store-reported lock conflict
// (deadlock or serialization failure) that warrants a transaction retry.
func IsRetriableLock(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == KindRetriableLock
}

// IsUniqueViolation reports whether err is a unique-constraint conflict.
func IsUniqueViolation(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == KindUniqueViolation
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
