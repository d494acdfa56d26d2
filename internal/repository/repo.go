package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ctfd-bot/internal/domain"

	sq "github.com/Masterminds/squirrel"
)

type scanner interface {
	Scan(dest ...any) error
}

// selectAll runs q and scans every row with scan.
func selectAll[T any](ctx context.Context, db *sql.DB, q sq.SelectBuilder, scan func(scanner) (T, error)) ([]T, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// selectOne runs q expecting a single row; no row maps to domain.ErrNotFound.
func selectOne(ctx context.Context, db *sql.DB, q sq.SelectBuilder, dest ...any) error {
	query, args, err := q.Limit(1).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	err = db.QueryRowContext(ctx, query, args...).Scan(dest...)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	return err
}

// withUsers restricts q to listed accounts matching filter. Hidden and
// banned accounts never show up.
func withUsers(q sq.SelectBuilder, filter domain.RoleFilter) sq.SelectBuilder {
	q = q.Where(sq.Eq{"users.hidden": false, "users.banned": false})
	roles := filter.Roles()
	if roles == nil {
		return q
	}
	types := make([]string, len(roles))
	for i, r := range roles {
		types[i] = string(r)
	}
	return q.Where(sq.Eq{"users.type": types})
}
