package render

import (
	"strings"
	"testing"
	"time"

	"ctfd-bot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"empty", "", 10, nil},
		{"fits", "a\nb", 10, []string{"a\nb"}},
		{"trailing newline", "a\nb\n", 10, []string{"a\nb"}},
		{"line boundary", "aaaa\nbbbb\ncc", 9, []string{"aaaa\nbbbb", "cc"}},
		{"exact fit", "aaaa\nbbbb", 9, []string{"aaaa\nbbbb"}},
		{"long line", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"long line after short", "x\nabcdefgh", 4, []string{"x", "abcd", "efgh"}},
		{"runes", "ééé", 3, []string{"é", "é", "é"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.text, tt.limit))
		})
	}
}

func TestSplitKeepsEveryLine(t *testing.T) {
	var lines []string
	for i := range 200 {
		lines = append(lines, strings.Repeat("x", i%37)+" • Challenge (50 points)")
	}
	text := strings.Join(lines, "\n")

	chunks := Split(text, 1024)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 1024)
	}
	assert.Equal(t, text, strings.Join(chunks, "\n"))
}

func TestScoreboard(t *testing.T) {
	r := Scoreboard([]domain.ScoreEntry{
		{UserName: "a", Score: 1250},
		{UserName: "b", Score: 100},
		{UserName: "c", Score: 50},
		{UserName: "d", Score: 10},
	})

	assert.Equal(t, "Scoreboard", r.Title)
	assert.Equal(t, ColorScoreboard, r.Color)
	lines := strings.Split(r.Body, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "🥇 a --> Score = 1,250", lines[0])
	assert.Equal(t, "🥉 c --> Score = 50", lines[2])
	assert.Equal(t, " • • • d --> Score = 10", lines[3])

	assert.Equal(t, "Nobody scored yet.", Scoreboard(nil).Body)
}

func TestWhoSolved(t *testing.T) {
	assert.Equal(t, " • zTeeed\n • user2", WhoSolved("Challenge2", []string{"zTeeed", "user2"}).Body)
	assert.Equal(t, "Nobody solves Challenge3.", WhoSolved("Challenge3", nil).Body)
	assert.Equal(t, "Who solved Challenge3 ?", WhoSolved("Challenge3", nil).Title)
}

func TestSolvedLastDays(t *testing.T) {
	now := time.Date(2019, 8, 16, 18, 0, 0, 0, time.UTC)
	groups := []domain.UserSolves{{
		UserName: "user1",
		Challenges: []domain.SolvedChallenge{
			{Name: "Challenge4", Value: 200, SolvedAt: now.Add(-2 * time.Hour)},
		},
	}}

	replies := SolvedLastDays(groups, 2, "", now)
	require.Len(t, replies, 1)
	assert.Equal(t, "Challenges solved by user1 since last 48h", replies[0].Title)
	assert.Equal(t, " • Challenge4 (200 points) - 2 hours ago", replies[0].Body)

	replies = SolvedLastDays(nil, 1, "user3", now)
	require.Len(t, replies, 1)
	assert.Equal(t, "No challenges solved by user3 :frowning:", replies[0].Body)

	replies = SolvedLastDays(nil, 1, "", now)
	assert.Equal(t, "No challenges solved by anyone :frowning:", replies[0].Body)
}

func TestDiff(t *testing.T) {
	replies := Diff(&domain.SolveDiff{
		First:  domain.UserSolves{UserName: "user1", Challenges: []domain.SolvedChallenge{{Name: "Challenge4", Value: 200}}},
		Second: domain.UserSolves{UserName: "zTeeed"},
	})
	require.Len(t, replies, 1)
	assert.Equal(t, "Challenges solved by user1", replies[0].Title)
	assert.Equal(t, " • Challenge4 (200 points)", replies[0].Body)

	replies = Diff(&domain.SolveDiff{})
	require.Len(t, replies, 1)
	assert.Equal(t, "DIFF", replies[0].Title)
}

func TestEvents(t *testing.T) {
	solve := NewSolve(&domain.SolveEvent{
		UserName:       "user1",
		ChallengeName:  "Challenge1",
		ChallengeValue: 50,
		SubmittedAt:    time.Date(2019, 8, 15, 18, 47, 50, 0, time.UTC),
	})
	assert.Equal(t, "New challenge solved by user1", solve.Title)
	assert.True(t, strings.HasPrefix(solve.Title, NewSolveTitle))
	assert.Equal(t, " • Challenge1 (50 points)\n • Date: 2019-08-15 18:47:50", solve.Body)
	assert.Equal(t, ColorNewSolve, solve.Color)

	challenge := NewChallenge(&domain.ChallengeInfo{ID: 3, Name: "Challenge3", Value: 100, Category: "Web"})
	assert.Equal(t, "New challenge available", challenge.Title)
	assert.Equal(t, " • Challenge3 (100 points) - category Web", challenge.Body)
}

func TestHelp(t *testing.T) {
	r := Help(">>", []Command{
		{Name: "scoreboard", Description: "Show the ranking."},
		{Name: "category", Args: "<category>", Description: "List a category."},
	})
	assert.Equal(t, "`>>scoreboard` Show the ranking.\n`>>category <category>` List a category.", r.Body)
}
