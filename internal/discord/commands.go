package discord

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"ctfd-bot/internal/domain"
	"ctfd-bot/internal/metrics"
	"ctfd-bot/internal/render"

	"github.com/rs/zerolog"
)

// Queries answers the read-only commands.
type Queries interface {
	Scoreboard(ctx context.Context, all bool) ([]domain.ScoreEntry, error)
	Categories(ctx context.Context) ([]string, error)
	Category(ctx context.Context, name string) ([]domain.ChallengeInfo, error)
	WhoSolved(ctx context.Context, challenge string) ([]string, error)
	SolvedLastDays(ctx context.Context, days int, user string) ([]domain.UserSolves, error)
	Diff(ctx context.Context, user1, user2 string) (*domain.SolveDiff, error)
	ProblemAuthors(ctx context.Context, challenge string) ([]domain.Author, error)
}

type Flusher interface {
	Flush(ctx context.Context, author string) (int, error)
}

// Mentioner turns author handles into guild mentions.
type Mentioner interface {
	Mentions(ctx context.Context, authors []domain.Author) []string
}

type command struct {
	render.Command
	run func(ctx context.Context, author string, args []string) ([]render.Reply, error)
}

type Commands struct {
	queries  Queries
	flusher  Flusher
	mentions Mentioner
	prefix   string
	metrics  *metrics.Metrics
	now      func() time.Time
	logger   zerolog.Logger

	byName map[string]command
	help   []render.Command
}

func NewCommands(prefix string, queries Queries, flusher Flusher, mentions Mentioner, m *metrics.Metrics, logger zerolog.Logger) *Commands {
	c := &Commands{
		queries:  queries,
		flusher:  flusher,
		mentions: mentions,
		prefix:   prefix,
		metrics:  m,
		now:      time.Now,
		logger:   logger.With().Str("component", "commands").Logger(),
	}

	list := []command{
		{render.Command{Name: "scoreboard", Description: "Show ranking of CTFd (20 first players)."}, c.scoreboard(false)},
		{render.Command{Name: "scoreboard_complete", Description: "Show ranking of CTFd."}, c.scoreboard(true)},
		{render.Command{Name: "categories", Description: "Show list of categories."}, c.categories},
		{render.Command{Name: "category", Args: "<category>", Description: "Show list of challenges from a category."}, c.category},
		{render.Command{Name: "problem", Args: "<challenge>", Description: "Mention the authors of a challenge."}, c.problem},
		{render.Command{Name: "who_solved", Args: "<challenge>", Description: "Return who solved a specific challenge."}, c.whoSolved},
		{render.Command{Name: "solved_last_days", Args: "<number_of_days> (<username>)", Description: "Return challenges solved grouped by users for the last days."}, c.solvedLastDays},
		{render.Command{Name: "diff", Args: "<username1> <username2>", Description: "Return difference of solved challenges between two users."}, c.diff},
		{render.Command{Name: "flush", Description: "Flush all data from bot channel except events."}, c.flush},
		{render.Command{Name: "help", Description: "Show this message."}, c.showHelp},
	}
	c.byName = make(map[string]command, len(list))
	for _, cmd := range list {
		c.byName[cmd.Name] = cmd
		c.help = append(c.help, cmd.Command)
	}
	return c
}

// Handle runs the command in content. Content without the prefix yields no
// reply. Usage and lookup failures become replies; other errors are returned.
func (c *Commands) Handle(ctx context.Context, author, content string) ([]render.Reply, error) {
	fields := strings.Fields(content)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], c.prefix) {
		return nil, nil
	}

	name := strings.TrimPrefix(fields[0], c.prefix)
	cmd, ok := c.byName[name]
	if !ok {
		return []render.Reply{render.Error("Unknown command `%s`. Use `%shelp` to list commands.", name, c.prefix)}, nil
	}

	c.metrics.Commands.WithLabelValues(name).Inc()
	c.logger.Info().Str("command", name).Str("author", author).Msg("command executed")

	replies, err := cmd.run(ctx, author, fields[1:])
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return []render.Reply{notFound(nf)}, nil
		}
		if errors.Is(err, domain.ErrInvalidArgument) {
			return []render.Reply{render.Error("%s", err)}, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return replies, nil
}

func notFound(nf *domain.NotFoundError) render.Reply {
	kind := nf.Kind
	if kind != "" {
		kind = strings.ToUpper(kind[:1]) + kind[1:]
	}
	return render.Error("%s %s does not exist.", kind, nf.Name)
}

func (c *Commands) usage(name string) render.Reply {
	cmd := c.byName[name]
	return render.Error("Use %s%s %s", c.prefix, cmd.Name, cmd.Args)
}

// joined reads the arguments as one name, the way CTFd shows it.
func joined(args []string) string {
	return html.UnescapeString(strings.TrimSpace(strings.Join(args, " ")))
}

func (c *Commands) scoreboard(all bool) func(context.Context, string, []string) ([]render.Reply, error) {
	return func(ctx context.Context, _ string, _ []string) ([]render.Reply, error) {
		entries, err := c.queries.Scoreboard(ctx, all)
		if err != nil {
			return nil, err
		}
		return []render.Reply{render.Scoreboard(entries)}, nil
	}
}

func (c *Commands) categories(ctx context.Context, _ string, _ []string) ([]render.Reply, error) {
	categories, err := c.queries.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return []render.Reply{render.Categories(categories)}, nil
}

func (c *Commands) category(ctx context.Context, _ string, args []string) ([]render.Reply, error) {
	name := joined(args)
	if name == "" {
		return []render.Reply{c.usage("category")}, nil
	}
	challenges, err := c.queries.Category(ctx, name)
	if err != nil {
		return nil, err
	}
	return []render.Reply{render.Category(name, challenges)}, nil
}

func (c *Commands) problem(ctx context.Context, _ string, args []string) ([]render.Reply, error) {
	challenge := joined(args)
	if challenge == "" {
		return []render.Reply{c.usage("problem")}, nil
	}
	authors, err := c.queries.ProblemAuthors(ctx, challenge)
	if err != nil {
		return nil, err
	}
	if len(authors) == 0 {
		return []render.Reply{render.NoAuthors(challenge)}, nil
	}
	return []render.Reply{render.Ping(c.mentions.Mentions(ctx, authors))}, nil
}

func (c *Commands) whoSolved(ctx context.Context, _ string, args []string) ([]render.Reply, error) {
	challenge := joined(args)
	if challenge == "" {
		return []render.Reply{c.usage("who_solved")}, nil
	}
	solvers, err := c.queries.WhoSolved(ctx, challenge)
	if err != nil {
		return nil, err
	}
	return []render.Reply{render.WhoSolved(challenge, solvers)}, nil
}

func (c *Commands) solvedLastDays(ctx context.Context, _ string, args []string) ([]render.Reply, error) {
	if len(args) < 1 || len(args) > 2 {
		return []render.Reply{c.usage("solved_last_days")}, nil
	}
	days, err := strconv.Atoi(args[0])
	if err != nil || days < 1 {
		return []render.Reply{render.Error("<number_of_days> is an integer >= 1.\nUse %ssolved_last_days <number_of_days> (<username>)", c.prefix)}, nil
	}
	var user string
	if len(args) == 2 {
		user = joined(args[1:])
	}

	groups, err := c.queries.SolvedLastDays(ctx, days, user)
	if err != nil {
		return nil, err
	}
	return render.SolvedLastDays(groups, days, user, c.now()), nil
}

func (c *Commands) diff(ctx context.Context, _ string, args []string) ([]render.Reply, error) {
	if len(args) != 2 {
		return []render.Reply{c.usage("diff")}, nil
	}
	diff, err := c.queries.Diff(ctx, html.UnescapeString(args[0]), html.UnescapeString(args[1]))
	if err != nil {
		return nil, err
	}
	return render.Diff(diff), nil
}

func (c *Commands) flush(ctx context.Context, author string, _ []string) ([]render.Reply, error) {
	if _, err := c.flusher.Flush(ctx, author); err != nil {
		c.logger.Error().Err(err).Str("author", author).Msg("failed to flush channel")
		return []render.Reply{render.Flush("An error occurs while trying to flush channel data.")}, nil
	}
	return []render.Reply{render.Flush(fmt.Sprintf("Data from channel has been flushed successfully by %s.", author))}, nil
}

func (c *Commands) showHelp(context.Context, string, []string) ([]render.Reply, error) {
	return []render.Reply{render.Help(c.prefix, c.help)}, nil
}
