package tracker

import (
	"context"
	"fmt"

	"ctfd-bot/internal/domain"
)

type SubmissionReader interface {
	// CorrectSolves returns correct submissions newest first, ties broken by
	// descending submission id.
	CorrectSolves(ctx context.Context, filter domain.RoleFilter) ([]domain.Solve, error)
}

// SolveTracker surfaces at most one unseen solve per poll, oldest first.
type SolveTracker struct {
	reader SubmissionReader
	filter domain.RoleFilter
}

func NewSolveTracker(reader SubmissionReader, filter domain.RoleFilter) *SolveTracker {
	return &SolveTracker{reader: reader, filter: filter}
}

// Poll compares the newest solves against last. On a cold start (last is
// zero) it returns the newest fingerprint without an event. On error the
// given fingerprint is returned unchanged.
func (t *SolveTracker) Poll(ctx context.Context, last Fingerprint) (Fingerprint, *domain.SolveEvent, error) {
	solves, err := t.reader.CorrectSolves(ctx, t.filter)
	if err != nil {
		return last, nil, fmt.Errorf("failed to fetch correct solves: %w", err)
	}
	next, solve := nextSolve(solves, last)
	if solve == nil {
		return next, nil, nil
	}
	return next, &domain.SolveEvent{
		UserName:       solve.UserName,
		ChallengeName:  solve.ChallengeName,
		ChallengeValue: solve.ChallengeValue,
		SubmittedAt:    solve.SubmittedAt,
	}, nil
}

func nextSolve(solves []domain.Solve, last Fingerprint) (Fingerprint, *domain.Solve) {
	if last.IsZero() {
		if len(solves) == 0 {
			return last, nil
		}
		return FingerprintOf(solves[0]), nil
	}

	unseen := unseenSince(solves, last)
	if len(unseen) == 0 {
		return last, nil
	}
	oldest := unseen[len(unseen)-1]
	return FingerprintOf(oldest), &oldest
}

// unseenSince returns the newest-first prefix of solves that precedes the
// entry matching last. When nothing matches, all solves are unseen.
func unseenSince(solves []domain.Solve, last Fingerprint) []domain.Solve {
	for i, s := range solves {
		if FingerprintOf(s) == last {
			return solves[:i]
		}
	}
	return solves
}
