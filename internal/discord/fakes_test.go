package discord

import (
	"context"
	"errors"
	"fmt"

	"ctfd-bot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

type fakeMessenger struct {
	sent     []string
	embeds   []*discordgo.MessageEmbed
	history  []*discordgo.Message
	deleted  []string
	members  []*discordgo.Member
	sendErr  error
	channels []string
}

func (f *fakeMessenger) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.channels = append(f.channels, channelID)
	f.sent = append(f.sent, content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeMessenger) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.channels = append(f.channels, channelID)
	f.embeds = append(f.embeds, embed)
	return &discordgo.Message{ChannelID: channelID, Embeds: []*discordgo.MessageEmbed{embed}}, nil
}

func (f *fakeMessenger) ChannelMessages(_ string, limit int, _, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	if len(f.history) > limit {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func (f *fakeMessenger) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) GuildMembersSearch(_, query string, _ int, _ ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	var out []*discordgo.Member
	for _, m := range f.members {
		if m.User.Username == query {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeQueries struct {
	scoreboardAll bool
	days          int
	user          string
	err           error
}

func (f *fakeQueries) Scoreboard(_ context.Context, all bool) ([]domain.ScoreEntry, error) {
	f.scoreboardAll = all
	return []domain.ScoreEntry{{UserID: 2, UserName: "user1", Score: 250}}, f.err
}

func (f *fakeQueries) Categories(context.Context) ([]string, error) {
	return []string{"Category1", "Category2"}, f.err
}

func (f *fakeQueries) Category(_ context.Context, name string) ([]domain.ChallengeInfo, error) {
	if name != "Web Exploitation" {
		return nil, domain.NotFound("category", name)
	}
	return []domain.ChallengeInfo{{ID: 1, Name: "Login", Value: 100, Category: name}}, nil
}

func (f *fakeQueries) WhoSolved(_ context.Context, challenge string) ([]string, error) {
	if challenge != "Challenge1" {
		return nil, domain.NotFound("challenge", challenge)
	}
	return []string{"user1", "zTeeed"}, nil
}

func (f *fakeQueries) SolvedLastDays(_ context.Context, days int, user string) ([]domain.UserSolves, error) {
	f.days, f.user = days, user
	return nil, f.err
}

func (f *fakeQueries) Diff(_ context.Context, user1, user2 string) (*domain.SolveDiff, error) {
	if user2 == "nobody" {
		return nil, domain.NotFound("user", user2)
	}
	return &domain.SolveDiff{
		First:  domain.UserSolves{UserName: user1, Challenges: []domain.SolvedChallenge{{Name: "Challenge4", Value: 200}}},
		Second: domain.UserSolves{UserName: user2},
	}, nil
}

func (f *fakeQueries) ProblemAuthors(_ context.Context, challenge string) ([]domain.Author, error) {
	switch challenge {
	case "Challenge1":
		return []domain.Author{{Name: "SymLiNK", Discriminator: "2835"}}, nil
	case "Challenge4":
		return nil, nil
	}
	return nil, domain.NotFound("challenge", challenge)
}

type fakeFlusher struct {
	author string
	err    error
}

func (f *fakeFlusher) Flush(_ context.Context, author string) (int, error) {
	f.author = author
	return 3, f.err
}

type fakeMentioner struct{}

func (fakeMentioner) Mentions(_ context.Context, authors []domain.Author) []string {
	out := make([]string, len(authors))
	for i, a := range authors {
		out[i] = fmt.Sprintf("<@%s>", a.Name)
	}
	return out
}

var errStore = errors.New("store unreachable")
