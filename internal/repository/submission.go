package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ctfd-bot/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
)

type SubmissionRepository struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	logger zerolog.Logger
}

func NewSubmissionRepository(db *sql.DB, sb sq.StatementBuilderType, logger zerolog.Logger) *SubmissionRepository {
	return &SubmissionRepository{
		db:     db,
		sb:     sb,
		logger: logger,
	}
}

func (r *SubmissionRepository) solves() sq.SelectBuilder {
	return r.sb.Select(
		"submissions.id",
		"users.id",
		"users.name",
		"challenges.id",
		"challenges.name",
		"challenges.value",
		"submissions.date",
	).
		From("submissions").
		Join("users ON users.id = submissions.user_id").
		Join("challenges ON challenges.id = submissions.challenge_id").
		Where(sq.Eq{"submissions.type": string(domain.VerdictCorrect)}).
		OrderBy("submissions.date DESC", "submissions.id DESC")
}

func scanSolve(row scanner) (domain.Solve, error) {
	var s domain.Solve
	err := row.Scan(&s.SubmissionID, &s.UserID, &s.UserName, &s.ChallengeID, &s.ChallengeName, &s.ChallengeValue, &s.SubmittedAt)
	return s, err
}

// CorrectSolves lists correct submissions of users matching filter, newest first.
func (r *SubmissionRepository) CorrectSolves(ctx context.Context, filter domain.RoleFilter) ([]domain.Solve, error) {
	solves, err := selectAll(ctx, r.db, withUsers(r.solves(), filter), scanSolve)
	if err != nil {
		r.logger.Error().Err(err).Str("role_filter", string(filter)).Msg("failed to list correct solves")
		return nil, fmt.Errorf("failed to list correct solves: %w", err)
	}
	return solves, nil
}

// SolvesSince lists correct submissions made strictly after since, newest first.
func (r *SubmissionRepository) SolvesSince(ctx context.Context, since time.Time, filter domain.RoleFilter) ([]domain.Solve, error) {
	q := withUsers(r.solves(), filter).Where(sq.Gt{"submissions.date": since.UTC()})
	solves, err := selectAll(ctx, r.db, q, scanSolve)
	if err != nil {
		return nil, fmt.Errorf("failed to list solves since %s: %w", since.Format(time.RFC3339), err)
	}
	return solves, nil
}

// SolvedBy lists the challenges a user solved, most valuable first.
func (r *SubmissionRepository) SolvedBy(ctx context.Context, userName string) ([]domain.SolvedChallenge, error) {
	q := r.sb.Select("challenges.name", "challenges.value").
		From("submissions").
		Join("users ON users.id = submissions.user_id").
		Join("challenges ON challenges.id = submissions.challenge_id").
		Where(sq.Eq{
			"users.name":       userName,
			"submissions.type": string(domain.VerdictCorrect),
		}).
		OrderBy("challenges.value DESC", "challenges.name ASC")

	solved, err := selectAll(ctx, r.db, q, func(row scanner) (domain.SolvedChallenge, error) {
		var c domain.SolvedChallenge
		err := row.Scan(&c.Name, &c.Value)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges solved by %q: %w", userName, err)
	}
	return solved, nil
}
