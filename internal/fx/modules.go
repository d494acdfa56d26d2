package fx

import (
	"ctfd-bot/internal/api"
	"ctfd-bot/internal/config"
	"ctfd-bot/internal/database"
	"ctfd-bot/internal/discord"
	"ctfd-bot/internal/logger"
	"ctfd-bot/internal/metrics"
	"ctfd-bot/internal/repository"
	"ctfd-bot/internal/server"
	"ctfd-bot/internal/service"
	"ctfd-bot/internal/tracker"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideMessenger(session *discordgo.Session) discord.Messenger {
	return session
}

// ProvideReporter announces through the webhook when one is configured,
// through the bot channel otherwise.
func ProvideReporter(cfg *config.Config, messenger discord.Messenger, channel *discord.Channel, logger zerolog.Logger) tracker.Reporter {
	if cfg.WebhookURL != "" {
		logger.Info().Msg("announcing events through webhook")
		return discord.NewWebhookReporter(api.NewWebhookClient(cfg.WebhookURL))
	}
	return discord.NewChannelReporter(messenger, channel)
}

func ProvidePoller(
	cfg *config.Config,
	submissions *repository.SubmissionRepository,
	challenges *repository.ChallengeRepository,
	queries *service.QueryService,
	reporter tracker.Reporter,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *tracker.Poller {
	return tracker.NewPoller(
		cfg.PollInterval,
		tracker.NewSolveTracker(submissions, cfg.RoleFilter),
		tracker.NewVisibilityTracker(challenges),
		queries,
		reporter,
		m,
		logger,
	)
}

func ProvideFlusher(cfg *config.Config, messenger discord.Messenger, channel *discord.Channel, logger zerolog.Logger) *discord.ChannelFlusher {
	return discord.NewChannelFlusher(messenger, channel, cfg.CommandPrefix, logger)
}

func ProvideCommands(
	cfg *config.Config,
	queries *service.QueryService,
	flusher *discord.ChannelFlusher,
	mentioner *discord.GuildMentioner,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *discord.Commands {
	return discord.NewCommands(cfg.CommandPrefix, queries, flusher, mentioner, m, logger)
}

func ProvideBot(
	cfg *config.Config,
	session *discordgo.Session,
	channel *discord.Channel,
	commands *discord.Commands,
	queries *service.QueryService,
	logger zerolog.Logger,
) *discord.Bot {
	return discord.NewBot(cfg, session, channel, commands, queries, logger)
}

func ProvideQueryServer(queries *service.QueryService, poller *tracker.Poller) *server.QueryServer {
	return server.NewQueryServer(queries, poller)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(database.NewStatementBuilder),
	metrics.Module,
	// repos
	fx.Provide(repository.NewSubmissionRepository),
	fx.Provide(repository.NewChallengeRepository),
	fx.Provide(repository.NewUserRepository),
	fx.Provide(repository.NewConfigRepository),
	// svc
	fx.Provide(service.NewQueryService),
	// discord
	fx.Provide(discord.NewSession),
	fx.Provide(ProvideMessenger),
	fx.Provide(discord.NewChannel),
	fx.Provide(discord.NewGuildMentioner),
	fx.Provide(ProvideFlusher),
	fx.Provide(ProvideCommands),
	fx.Provide(ProvideBot),
	// tracker
	fx.Provide(ProvideReporter),
	fx.Provide(ProvidePoller),
	// server
	fx.Provide(ProvideQueryServer),
)
