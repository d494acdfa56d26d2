// Package render turns query results and tracker events into chat replies.
package render

import (
	"fmt"
	"strings"
	"time"

	"ctfd-bot/internal/constants"
	"ctfd-bot/internal/domain"

	"github.com/dustin/go-humanize"
)

const (
	ColorGreeting     = 0x000000
	ColorScoreboard   = 0x4200D4
	ColorCategories   = 0xB315A8
	ColorChallenge    = 0x29C1C5
	ColorRecent       = 0x00C7FF
	ColorDiff         = 0xFF00FF
	ColorError        = 0xD81948
	ColorNewSolve     = 0xFFCC00
	ColorNewChallenge = 0x16B841
)

// Title prefixes the flush command recognizes.
const (
	NewSolveTitle = "New challenge solved by"
	FlushTitle    = "FLUSH"
)

var medals = []string{"🥇", "🥈", "🥉"}

// Reply is one embed field, or a plain message when Title is empty.
type Reply struct {
	Title string
	Color int
	Body  string
}

// Chunks splits the body under the embed field limit.
func (r Reply) Chunks() []string {
	return Split(r.Body, constants.EmbedFieldLimit)
}

func Error(format string, args ...any) Reply {
	return Reply{Title: "ERROR", Color: ColorError, Body: fmt.Sprintf(format, args...)}
}

func Greeting(ctfName, prefix string) Reply {
	return Reply{
		Title: ctfName,
		Color: ColorGreeting,
		Body: fmt.Sprintf("Hello, it seems that it's the first time you are using my services.\n"+
			"You might use `%shelp` to know more about my features.", prefix),
	}
}

func bullet(name string, value int) string {
	return fmt.Sprintf(" • %s (%d points)", name, value)
}

func Scoreboard(entries []domain.ScoreEntry) Reply {
	r := Reply{Title: "Scoreboard", Color: ColorScoreboard}
	if len(entries) == 0 {
		r.Body = "Nobody scored yet."
		return r
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		rank := " • • •"
		if i < len(medals) {
			rank = medals[i]
		}
		lines[i] = fmt.Sprintf("%s %s --> Score = %s", rank, e.UserName, humanize.Comma(int64(e.Score)))
	}
	r.Body = strings.Join(lines, "\n")
	return r
}

func Categories(categories []string) Reply {
	r := Reply{Title: "Categories", Color: ColorCategories}
	if len(categories) == 0 {
		r.Body = "No category available yet."
		return r
	}

	lines := make([]string, len(categories))
	for i, c := range categories {
		lines[i] = " • " + c
	}
	r.Body = strings.Join(lines, "\n")
	return r
}

func Category(name string, challenges []domain.ChallengeInfo) Reply {
	lines := make([]string, len(challenges))
	for i, c := range challenges {
		lines[i] = bullet(c.Name, c.Value)
	}
	return Reply{Title: "Category " + name, Color: ColorCategories, Body: strings.Join(lines, "\n")}
}

func WhoSolved(challenge string, solvers []string) Reply {
	r := Reply{Title: fmt.Sprintf("Who solved %s ?", challenge), Color: ColorChallenge}
	if len(solvers) == 0 {
		r.Body = fmt.Sprintf("Nobody solves %s.", challenge)
		return r
	}

	lines := make([]string, len(solvers))
	for i, name := range solvers {
		lines[i] = " • " + name
	}
	r.Body = strings.Join(lines, "\n")
	return r
}

// NoAuthors answers a problem report on a challenge without known authors.
func NoAuthors(challenge string) Reply {
	return Reply{
		Title: fmt.Sprintf("Problem with %q ?", challenge),
		Color: ColorChallenge,
		Body:  fmt.Sprintf("Cannot find authors for challenge %q.", challenge),
	}
}

// Ping is a plain message mentioning the authors of a challenge.
func Ping(mentions []string) Reply {
	return Reply{Body: "Ping: " + strings.Join(mentions, " | ")}
}

// SolvedLastDays renders one reply per user, times relative to now.
func SolvedLastDays(groups []domain.UserSolves, days int, user string, now time.Time) []Reply {
	window := fmt.Sprintf("since last %dh", days*24)
	if len(groups) == 0 {
		who := "anyone"
		if user != "" {
			who = user
		}
		return []Reply{{
			Title: "Challenges solved " + window,
			Color: ColorRecent,
			Body:  fmt.Sprintf("No challenges solved by %s :frowning:", who),
		}}
	}

	replies := make([]Reply, 0, len(groups))
	for _, g := range groups {
		lines := make([]string, len(g.Challenges))
		for i, c := range g.Challenges {
			lines[i] = bullet(c.Name, c.Value) + " - " + humanize.RelTime(c.SolvedAt, now, "ago", "from now")
		}
		replies = append(replies, Reply{
			Title: fmt.Sprintf("Challenges solved by %s %s", g.UserName, window),
			Color: ColorRecent,
			Body:  strings.Join(lines, "\n"),
		})
	}
	return replies
}

func Diff(diff *domain.SolveDiff) []Reply {
	if diff.Empty() {
		return []Reply{{
			Title: "DIFF",
			Color: ColorDiff,
			Body:  "There is no difference of challenge solved between those players.",
		}}
	}

	var replies []Reply
	for _, side := range []domain.UserSolves{diff.First, diff.Second} {
		if len(side.Challenges) == 0 {
			continue
		}
		lines := make([]string, len(side.Challenges))
		for i, c := range side.Challenges {
			lines[i] = bullet(c.Name, c.Value)
		}
		replies = append(replies, Reply{
			Title: "Challenges solved by " + side.UserName,
			Color: ColorDiff,
			Body:  strings.Join(lines, "\n"),
		})
	}
	return replies
}

func Flush(body string) Reply {
	return Reply{Title: FlushTitle, Color: ColorError, Body: body}
}

func NewSolve(ev *domain.SolveEvent) Reply {
	return Reply{
		Title: NewSolveTitle + " " + ev.UserName,
		Color: ColorNewSolve,
		Body: bullet(ev.ChallengeName, ev.ChallengeValue) +
			"\n • Date: " + ev.SubmittedAt.UTC().Format(time.DateTime),
	}
}

func NewChallenge(info *domain.ChallengeInfo) Reply {
	return Reply{
		Title: "New challenge available",
		Color: ColorNewChallenge,
		Body:  bullet(info.Name, info.Value) + " - category " + info.Category,
	}
}

func Help(prefix string, commands []Command) Reply {
	lines := make([]string, len(commands))
	for i, c := range commands {
		usage := prefix + c.Name
		if c.Args != "" {
			usage += " " + c.Args
		}
		lines[i] = fmt.Sprintf("`%s` %s", usage, c.Description)
	}
	return Reply{Title: "Help", Color: ColorGreeting, Body: strings.Join(lines, "\n")}
}

// Command describes a chat command for the help listing.
type Command struct {
	Name        string
	Args        string
	Description string
}
