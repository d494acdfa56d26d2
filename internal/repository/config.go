package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ctfd-bot/internal/domain"

	sq "github.com/Masterminds/squirrel"
)

const ctfNameKey = "ctf_name"

type ConfigRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func NewConfigRepository(db *sql.DB, sb sq.StatementBuilderType) *ConfigRepository {
	return &ConfigRepository{db: db, sb: sb}
}

// CTFName reads the event name from the CTFd config table.
func (r *ConfigRepository) CTFName(ctx context.Context) (string, error) {
	q := r.sb.Select("config.value").From("config").Where(sq.Eq{"config.key": ctfNameKey})

	var name sql.NullString
	if err := selectOne(ctx, r.db, q, &name); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("failed to read ctf name: %w", err)
	}
	if !name.Valid || name.String == "" {
		return "", domain.ErrNotFound
	}
	return name.String, nil
}
