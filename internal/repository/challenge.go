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

type ChallengeRepository struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	logger zerolog.Logger
}

func NewChallengeRepository(db *sql.DB, sb sq.StatementBuilderType, logger zerolog.Logger) *ChallengeRepository {
	return &ChallengeRepository{
		db:     db,
		sb:     sb,
		logger: logger,
	}
}

var visible = sq.Eq{"challenges.state": string(domain.ChallengeVisible)}

func (r *ChallengeRepository) VisibleChallengeIDs(ctx context.Context) ([]int, error) {
	q := r.sb.Select("challenges.id").From("challenges").Where(visible).OrderBy("challenges.id ASC")
	ids, err := selectAll(ctx, r.db, q, func(row scanner) (int, error) {
		var id int
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list visible challenges")
		return nil, fmt.Errorf("failed to list visible challenges: %w", err)
	}
	return ids, nil
}

// ChallengeInfo looks a challenge up by id regardless of its state.
func (r *ChallengeRepository) ChallengeInfo(ctx context.Context, id int) (*domain.ChallengeInfo, error) {
	q := r.sb.Select("challenges.id", "challenges.name", "challenges.value", "COALESCE(challenges.category, '')").
		From("challenges").
		Where(sq.Eq{"challenges.id": id})

	var info domain.ChallengeInfo
	if err := selectOne(ctx, r.db, q, &info.ID, &info.Name, &info.Value, &info.Category); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Debug().Int("challenge_id", id).Msg("challenge not found")
			return nil, err
		}
		return nil, fmt.Errorf("failed to get challenge %d: %w", id, err)
	}
	return &info, nil
}

// Categories returns the distinct categories of visible challenges, sorted.
func (r *ChallengeRepository) Categories(ctx context.Context) ([]string, error) {
	q := r.sb.Select("challenges.category").
		Distinct().
		From("challenges").
		Where(visible).
		Where(sq.NotEq{"challenges.category": nil}).
		OrderBy("challenges.category ASC")

	categories, err := selectAll(ctx, r.db, q, func(row scanner) (string, error) {
		var c string
		err := row.Scan(&c)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ByCategory lists the visible challenges of a category, most valuable first.
func (r *ChallengeRepository) ByCategory(ctx context.Context, category string) ([]domain.ChallengeInfo, error) {
	q := r.sb.Select("challenges.id", "challenges.name", "challenges.value", "challenges.category").
		From("challenges").
		Where(visible).
		Where(sq.Eq{"challenges.category": category}).
		OrderBy("challenges.value DESC", "challenges.name ASC")

	challenges, err := selectAll(ctx, r.db, q, func(row scanner) (domain.ChallengeInfo, error) {
		var c domain.ChallengeInfo
		err := row.Scan(&c.ID, &c.Name, &c.Value, &c.Category)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list category %q: %w", category, err)
	}
	return challenges, nil
}

// ByName returns a visible challenge looked up by name.
func (r *ChallengeRepository) ByName(ctx context.Context, name string) (*domain.Challenge, error) {
	q := r.sb.Select(
		"challenges.id",
		"challenges.name",
		"COALESCE(challenges.category, '')",
		"challenges.value",
		"challenges.state",
		"COALESCE(challenges.description, '')",
	).
		From("challenges").
		Where(visible).
		Where(sq.Eq{"challenges.name": name})

	var (
		c     domain.Challenge
		state string
	)
	if err := selectOne(ctx, r.db, q, &c.ID, &c.Name, &c.Category, &c.Value, &state, &c.Description); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get challenge %q: %w", name, err)
	}
	c.State = domain.ChallengeState(state)
	return &c, nil
}

func (r *ChallengeRepository) Exists(ctx context.Context, name string) (bool, error) {
	q := r.sb.Select("challenges.id").
		From("challenges").
		Where(visible).
		Where(sq.Eq{"challenges.name": name})

	var id int
	err := selectOne(ctx, r.db, q, &id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check challenge %q: %w", name, err)
	}
	return true, nil
}
