package errors

import (
	stderrs "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pg(code string) *pgconn.PgError { return &pgconn.PgError{Code: code} }

func TestDBErrorCode(t *testing.T) {
	cases := []struct {
		code string
		want ErrorCode
	}{
		{"23505", ErrorCodeDuplicateKey},
		{"23502", ErrorCodeValidation},
		{"23514", ErrorCodeValidation},
		{"22P02", ErrorCodeInvalidArgument},
		{"22032", ErrorCodeInvalidArgument},
		{"42P01", ErrorCodeNotFound},
		{"57014", ErrorCodeUnavailable},
		{"55P03", ErrorCodeUnavailable},
		{"57P01", ErrorCodeUnavailable},
		{"57P03", ErrorCodeUnavailable},
		{"25006", ErrorCodeUnavailable},
		{"40001", ErrorCodeDB},
		{"40P01", ErrorCodeDB},
		{"XX000", ErrorCodeDB},
	}
	for _, c := range cases {
		got, ok := DBErrorCode(pg(c.code))
		if !ok || got != c.want {
			t.Fatalf("DBErrorCode(%s) = %v,%v want %v", c.code, got, ok, c.want)
		}
	}
	if _, ok := DBErrorCode(stderrs.New("nope")); ok {
		t.Fatal("non pg error should not map")
	}
}

func TestFromPostgres(t *testing.T) {
	if FromPostgres(nil, "x") != nil {
		t.Fatal("nil should stay nil")
	}
	err := FromPostgres(fmt.Errorf("update: %w", pg("57014")), "update documents")
	if CodeOf(err) != ErrorCodeUnavailable {
		t.Fatalf("code = %v", CodeOf(err))
	}
	if CodeOf(FromPostgres(stderrs.New("conn reset"), "scan")) != ErrorCodeDB {
		t.Fatal("foreign errors default to DB")
	}
}

func TestSQLState(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("tx: %w", pg("40P01")), ErrorCodeDB, "commit")
	if SQLState(wrapped) != "40P01" {
		t.Fatalf("SQLState = %q", SQLState(wrapped))
	}
	if _, ok := ExtractPgError(stderrs.New("x")); ok || SQLState(stderrs.New("x")) != "" {
		t.Fatal("non pg error should have no state")
	}
}
