// Package dbtest opens throwaway CTFd databases for tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"ctfd-bot/internal/config"
	"ctfd-bot/internal/database"
	"ctfd-bot/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Open returns a migrated, empty sqlite database living in t's temp dir.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	cfg := &config.Config{
		DBDriver:    "sqlite3",
		DBDSN:       filepath.Join(t.TempDir(), "ctfd.db"),
		DBBootstrap: true,
	}
	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// Builder matches the placeholders of the sqlite databases returned by Open.
var Builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Seed fills db with a small event whose submissions start at base:
//
//	users       zTeeed (admin), user1, user2, user3 (no solves), ghost (hidden)
//	challenges  Challenge1 50 Category1, Challenge2 50 Category2,
//	            Challenge3 100 Category1 (hidden), Challenge4 200 Category1
//
// user1 solved Challenge1 then Challenge4, user2 solved Challenge2, zTeeed
// failed then solved Challenge2 and Challenge1, ghost solved Challenge1.
func Seed(t testing.TB, db *sql.DB, base time.Time) {
	t.Helper()
	base = base.UTC()

	users := []struct {
		domain.User
		hidden bool
	}{
		{domain.User{ID: 1, Name: "zTeeed", Role: domain.RoleAdmin}, false},
		{domain.User{ID: 2, Name: "user1", Role: domain.RolePlayer}, false},
		{domain.User{ID: 3, Name: "user2", Role: domain.RolePlayer}, false},
		{domain.User{ID: 4, Name: "user3", Role: domain.RolePlayer}, false},
		{domain.User{ID: 5, Name: "ghost", Role: domain.RolePlayer}, true},
	}

	challenges := []domain.Challenge{
		{ID: 1, Name: "Challenge1", Description: "Made by @SymLiNK#2835", Value: 50, Category: "Category1", State: domain.ChallengeVisible},
		{ID: 2, Name: "Challenge2", Description: "Ping zTeeed#1234 or the admin Bob#42 if it breaks", Value: 50, Category: "Category2", State: domain.ChallengeVisible},
		{ID: 3, Name: "Challenge3", Value: 100, Category: "Category1", State: domain.ChallengeHidden},
		{ID: 4, Name: "Challenge4", Description: "No author here", Value: 200, Category: "Category1", State: domain.ChallengeVisible},
	}

	at := func(seconds int) time.Time { return base.Add(time.Duration(seconds) * time.Second) }
	submissions := []domain.Submission{
		{ID: 1, ChallengeID: 1, UserID: 2, Provided: "flag{1}", Verdict: domain.VerdictCorrect, SubmittedAt: at(0)},
		{ID: 2, ChallengeID: 2, UserID: 3, Provided: "flag{2}", Verdict: domain.VerdictCorrect, SubmittedAt: at(18)},
		{ID: 3, ChallengeID: 2, UserID: 1, Provided: "NotTheFlag", Verdict: domain.VerdictIncorrect, SubmittedAt: at(30)},
		{ID: 4, ChallengeID: 1, UserID: 1, Provided: "flag{1}", Verdict: domain.VerdictCorrect, SubmittedAt: at(37)},
		{ID: 5, ChallengeID: 4, UserID: 2, Provided: "flag{4}", Verdict: domain.VerdictCorrect, SubmittedAt: at(60)},
		{ID: 6, ChallengeID: 1, UserID: 5, Provided: "flag{1}", Verdict: domain.VerdictCorrect, SubmittedAt: at(70)},
		{ID: 7, ChallengeID: 2, UserID: 1, Provided: "flag{2}", Verdict: domain.VerdictCorrect, SubmittedAt: at(80)},
	}

	userRows := Builder.Insert("users").Columns("id", "name", "type", "hidden")
	for _, u := range users {
		userRows = userRows.Values(u.ID, u.Name, string(u.Role), u.hidden)
	}

	challengeRows := Builder.Insert("challenges").Columns("id", "name", "description", "value", "category", "state")
	for _, c := range challenges {
		var description any
		if c.Description != "" {
			description = c.Description
		}
		challengeRows = challengeRows.Values(c.ID, c.Name, description, c.Value, c.Category, string(c.State))
	}

	// CTFd records a solve row next to every correct submission
	submissionRows := Builder.Insert("submissions").Columns("id", "challenge_id", "user_id", "provided", "type", "date")
	solveRows := Builder.Insert("solves").Columns("id", "challenge_id", "user_id")
	for _, s := range submissions {
		submissionRows = submissionRows.Values(s.ID, s.ChallengeID, s.UserID, s.Provided, string(s.Verdict), s.SubmittedAt)
		if s.Verdict == domain.VerdictCorrect {
			solveRows = solveRows.Values(s.ID, s.ChallengeID, s.UserID)
		}
	}

	cfg := Builder.Insert("config").Columns("key", "value").
		Values("ctf_name", "TestCTF")

	for _, q := range []sq.InsertBuilder{userRows, challengeRows, submissionRows, solveRows, cfg} {
		_, err := q.RunWith(db).Exec()
		require.NoError(t, err)
	}
}
