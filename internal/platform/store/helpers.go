package store

import (
	"context"
	"fmt"
)

// RowCountError reports a write that touched an unexpected number of rows
type RowCountError struct {
	Want, Got int64
}

func (e *RowCountError) Error() string {
	return fmt.Sprintf("rows affected: want %d, got %d", e.Want, e.Got)
}

// ExecOne runs a write that must touch exactly one row; otherwise it returns a *RowCountError
func ExecOne(ctx context.Context, q RowQuerier, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if got := tag.RowsAffected(); got != 1 {
		return &RowCountError{Want: 1, Got: got}
	}
	return nil
}

// Scalar scans a single column of the first row into T
func Scalar[T any](ctx context.Context, q RowQuerier, sql string, args ...any) (v T, err error) {
	err = q.QueryRow(ctx, sql, args...).Scan(&v)
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Each calls fn for every row until fn fails or the result set ends
func Each(ctx context.Context, q RowQuerier, fn func(Row) error, sql string, args ...any) error {
	rs, err := q.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rs.Close()
	for rs.Next() {
		if err := fn(rs); err != nil {
			return err
		}
	}
	return rs.Err()
}

// Many maps every row through scan
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	var out []T
	err := Each(ctx, q, func(r Row) error {
		v, err := scan(r)
		if err == nil {
			out = append(out, v)
		}
		return err
	}, sql, args...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
