package errors

import (
	stderrs "errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the document store maps explicitly
const (
	pgErrUniqueViolation           = "23505"
	pgErrNotNullViolation          = "23502"
	pgErrCheckViolation            = "23514"
	pgErrInvalidTextRepresentation = "22P02"
	pgErrInvalidJSONText           = "22032"
	pgErrUndefinedTable            = "42P01"

	pgErrSerializationFailure   = "40001"
	pgErrDeadlockDetected       = "40P01"
	pgErrLockNotAvailable       = "55P03"
	pgErrQueryCanceled          = "57014" // statement_timeout lands here
	pgErrAdminShutdown          = "57P01"
	pgErrCannotConnectNow       = "57P03"
	pgErrReadOnlySQLTransaction = "25006"
)

// ExtractPgError returns the *pgconn.PgError at the root of err
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(Root(err), &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// SQLState returns the SQLSTATE of err, or "" when err is not from postgres
func SQLState(err error) string {
	if pgErr, ok := ExtractPgError(err); ok {
		return pgErr.Code
	}
	return ""
}

// DBErrorCode maps a postgres error to an ErrorCode; ok is false for non postgres errors
func DBErrorCode(err error) (ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}
	switch pgErr.Code {
	case pgErrUniqueViolation:
		return ErrorCodeDuplicateKey, true
	case pgErrNotNullViolation, pgErrCheckViolation:
		return ErrorCodeValidation, true
	case pgErrInvalidTextRepresentation, pgErrInvalidJSONText:
		return ErrorCodeInvalidArgument, true
	case pgErrUndefinedTable:
		return ErrorCodeNotFound, true
	case pgErrQueryCanceled, pgErrLockNotAvailable, pgErrAdminShutdown,
		pgErrCannotConnectNow, pgErrReadOnlySQLTransaction:
		return ErrorCodeUnavailable, true
	case pgErrSerializationFailure, pgErrDeadlockDetected:
		return ErrorCodeDB, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with its mapped code and msg; nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if code, ok := DBErrorCode(err); ok {
		return Wrap(err, code, msg)
	}
	return Wrap(err, ErrorCodeDB, msg)
}
