package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ctfd-bot/internal/config"
	"ctfd-bot/internal/constants"
	"ctfd-bot/internal/domain"
	"ctfd-bot/internal/repository"

	"github.com/Yiling-J/theine-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type QueryService struct {
	submissions *repository.SubmissionRepository
	challenges  *repository.ChallengeRepository
	users       *repository.UserRepository
	config      *repository.ConfigRepository
	filter      domain.RoleFilter
	infoCache   *theine.LoadingCache[int, *domain.ChallengeInfo]
	now         func() time.Time
	logger      zerolog.Logger
}

func NewQueryService(
	cfg *config.Config,
	submissions *repository.SubmissionRepository,
	challenges *repository.ChallengeRepository,
	users *repository.UserRepository,
	configRepo *repository.ConfigRepository,
	logger zerolog.Logger,
) (*QueryService, error) {
	s := &QueryService{
		submissions: submissions,
		challenges:  challenges,
		users:       users,
		config:      configRepo,
		filter:      cfg.RoleFilter,
		now:         time.Now,
		logger:      logger,
	}

	cache, err := theine.NewBuilder[int, *domain.ChallengeInfo](constants.ChallengeCacheSize).
		BuildWithLoader(func(ctx context.Context, id int) (theine.Loaded[*domain.ChallengeInfo], error) {
			info, err := s.challenges.ChallengeInfo(ctx, id)
			if err != nil {
				return theine.Loaded[*domain.ChallengeInfo]{}, err
			}
			return theine.Loaded[*domain.ChallengeInfo]{
				Value: info,
				Cost:  1,
				TTL:   cfg.CacheTTL,
			}, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to build challenge cache: %w", err)
	}
	s.infoCache = cache

	return s, nil
}

// Close releases the challenge cache.
func (s *QueryService) Close() {
	s.infoCache.Close()
}

// Scoreboard returns the top of the ranking, or all of it when all is set.
func (s *QueryService) Scoreboard(ctx context.Context, all bool) ([]domain.ScoreEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QueryTimeout)
	defer cancel()

	entries, err := s.users.Scoreboard(ctx, s.filter)
	if err != nil {
		return nil, err
	}
	if !all && len(entries) > constants.ScoreboardTopN {
		entries = entries[:constants.ScoreboardTopN]
	}
	return entries, nil
}

func (s *QueryService) Categories(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QueryTimeout)
	defer cancel()

	return s.challenges.Categories(ctx)
}

func (s *QueryService) Category(ctx context.Context, name string) ([]domain.ChallengeInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QueryTimeout)
	defer cancel()

	challenges, err := s.challenges.ByCategory(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(challenges) == 0 {
		return nil, domain.NotFound("category", name)
	}
	return challenges, nil
}

// WhoSolved lists the solvers of a challenge in scoreboard order.
func (s *QueryService) WhoSolved(ctx context.Context, challenge string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QueryTimeout)
	defer cancel()

	if err := s.requireChallenge(ctx, challenge); err != nil {
		return nil, err
	}

	solvers, err := s.users.SolversOf(ctx, challenge, s.filter)
	if err != nil {
		return nil, err
	}
	ranking, err := s.users.Scoreboard(ctx, s.filter)
	if err != nil {
		return nil, err
	}

	solved := make(map[string]bool, len(solvers))
	for _, name := range solvers {
		solved[name] = true
	}
	ordered := make([]string, 0, len(solvers))
	for _, e := range ranking {
		if solved[e.UserName] {
			ordered = append(ordered, e.UserName)
			delete(solved, e.UserName)
		}
	}
	// solvers of zero-point challenges may be missing from the ranking
	for _, name := range solvers {
		if solved[name] {
			ordered = append(ordered, name)
		}
	}
	return ordered, nil
}

// SolvedLastDays groups the solves of the last days*24h per user, in
// scoreboard order. A non-empty user narrows the result to that user.
func (s *QueryService) SolvedLastDays(ctx context.Context, days int, user string) ([]domain.UserSolves, error) {
	if days < 1 {
		return nil, fmt.Errorf("%w: number of days must be at least 1, got %d", domain.ErrInvalidArgument, days)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.QueryTimeout)
	defer cancel()

	if user != "" {
		if err := s.requireUser(ctx, user); err != nil {
			return nil, err
		}
	}

	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	solves, err := s.submissions.SolvesSince(ctx, since, s.filter)
	if err != nil {
		return nil, err
	}
	ranking, err := s.users.Scoreboard(ctx, s.filter)
	if err != nil {
		return nil, err
	}

	byUser := make(map[int][]domain.SolvedChallenge)
	for _, solve := range solves {
		byUser[solve.UserID] = append(byUser[solve.UserID], domain.SolvedChallenge{
			Name:     solve.ChallengeName,
			Value:    solve.ChallengeValue,
			SolvedAt: solve.SubmittedAt,
		})
	}

	var groups []domain.UserSolves
	for _, e := range ranking {
		if user != "" && e.UserName != user {
			continue
		}
		if challenges := byUser[e.UserID]; len(challenges) > 0 {
			groups = append(groups, domain.UserSolves{UserName: e.UserName, Challenges: challenges})
		}
	}

	s.logger.Debug().Int("days", days).Str("user", user).Int("groups", len(groups)).Msg("collected recent solves")
	return groups, nil
}

// Diff compares the challenges solved by two users.
func (s *QueryService) Diff(ctx context.Context, user1, user2 string) (*domain.SolveDiff, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QueryTimeout)
	defer cancel()

	for _, user := range []string{user1, user2} {
		if err := s.requireUser(ctx, user); err != nil {
			return nil, err
		}
	}

	var solved1, solved2 []domain.SolvedChallenge
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		solved1, err = s.submissions.SolvedBy(gCtx, user1)
		return err
	})
	g.Go(func() error {
		var err error
		solved2, err = s.submissions.SolvedBy(gCtx, user2)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.SolveDiff{
		First:  domain.UserSolves{UserName: user1, Challenges: missingFrom(solved1, solved2)},
		Second: domain.UserSolves{UserName: user2, Challenges: missingFrom(solved2, solved1)},
	}, nil
}

// missingFrom keeps the entries of a whose name is absent from b.
func missingFrom(a, b []domain.SolvedChallenge) []domain.SolvedChallenge {
	names := make(map[string]bool, len(b))
	for _, c := range b {
		names[c.Name] = true
	}
	out := []domain.SolvedChallenge{}
	for _, c := range a {
		if !names[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

// ProblemAuthors returns the Discord handles mentioned in a challenge description.
func (s *QueryService) ProblemAuthors(ctx context.Context, challenge string) ([]domain.Author, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QueryTimeout)
	defer cancel()

	c, err := s.challenges.ByName(ctx, challenge)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("challenge", challenge)
		}
		return nil, err
	}
	return ParseAuthors(c.Description), nil
}

// ChallengeInfo resolves a challenge id through the cache.
func (s *QueryService) ChallengeInfo(ctx context.Context, id int) (*domain.ChallengeInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QueryTimeout)
	defer cancel()

	info, err := s.infoCache.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve challenge %d: %w", id, err)
	}
	return info, nil
}

func (s *QueryService) CTFName(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QueryTimeout)
	defer cancel()

	return s.config.CTFName(ctx)
}

func (s *QueryService) requireChallenge(ctx context.Context, name string) error {
	ok, err := s.challenges.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("challenge", name)
	}
	return nil
}

func (s *QueryService) requireUser(ctx context.Context, name string) error {
	ok, err := s.users.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("user", name)
	}
	return nil
}
