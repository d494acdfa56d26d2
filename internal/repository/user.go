package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ctfd-bot/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
)

type UserRepository struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	logger zerolog.Logger
}

func NewUserRepository(db *sql.DB, sb sq.StatementBuilderType, logger zerolog.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		sb:     sb,
		logger: logger,
	}
}

// ByName looks a user up by name, whatever their role or visibility.
func (r *UserRepository) ByName(ctx context.Context, name string) (*domain.User, error) {
	q := r.sb.Select("users.id", "users.name", "users.type").From("users").Where(sq.Eq{"users.name": name})

	var (
		u    domain.User
		role string
	)
	if err := selectOne(ctx, r.db, q, &u.ID, &u.Name, &role); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user %q: %w", name, err)
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func (r *UserRepository) Exists(ctx context.Context, name string) (bool, error) {
	_, err := r.ByName(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Scoreboard ranks users by the summed value of their solves. Ties keep the
// older account first.
func (r *UserRepository) Scoreboard(ctx context.Context, filter domain.RoleFilter) ([]domain.ScoreEntry, error) {
	q := r.sb.Select("users.id", "users.name", "SUM(challenges.value) AS score").
		From("solves").
		Join("users ON users.id = solves.user_id").
		Join("challenges ON challenges.id = solves.challenge_id").
		GroupBy("users.id", "users.name").
		OrderBy("score DESC", "users.id ASC")

	entries, err := selectAll(ctx, r.db, withUsers(q, filter), func(row scanner) (domain.ScoreEntry, error) {
		var e domain.ScoreEntry
		err := row.Scan(&e.UserID, &e.UserName, &e.Score)
		return e, err
	})
	if err != nil {
		r.logger.Error().Err(err).Str("role_filter", string(filter)).Msg("failed to compute scoreboard")
		return nil, fmt.Errorf("failed to compute scoreboard: %w", err)
	}
	return entries, nil
}

// SolversOf lists the names of users matching filter who solved the challenge.
func (r *UserRepository) SolversOf(ctx context.Context, challengeName string, filter domain.RoleFilter) ([]string, error) {
	q := r.sb.Select("users.name").
		From("solves").
		Join("users ON users.id = solves.user_id").
		Join("challenges ON challenges.id = solves.challenge_id").
		Where(sq.Eq{"challenges.name": challengeName}).
		OrderBy("solves.id ASC")

	names, err := selectAll(ctx, r.db, withUsers(q, filter), func(row scanner) (string, error) {
		var name string
		err := row.Scan(&name)
		return name, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list solvers of %q: %w", challengeName, err)
	}
	return names, nil
}
