package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"ctfd-bot/internal/config"
	"ctfd-bot/internal/constants"
	"ctfd-bot/internal/discord"
	fxmodules "ctfd-bot/internal/fx"
	"ctfd-bot/internal/server"
	"ctfd-bot/internal/service"
	"ctfd-bot/internal/tracker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runBot),
		fx.Invoke(runServer),
	).Run()
}

func runBot(
	lc fx.Lifecycle,
	bot *discord.Bot,
	poller *tracker.Poller,
	queries *service.QueryService,
	db *sql.DB,
	logger zerolog.Logger,
) {
	pollCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := bot.Open(); err != nil {
				cancel()
				return err
			}
			go func() {
				defer close(done)
				poller.Run(pollCtx)
			}()
			logger.Info().Msg("bot started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down bot")
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
				logger.Warn().Msg("poller did not stop in time")
			}

			if err := bot.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing discord session")
			}
			queries.Close()
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			logger.Info().Msg("bot stopped")
			return nil
		},
	})
}

func runServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	queryServer *server.QueryServer,
	reg *prometheus.Registry,
	logger zerolog.Logger,
) {
	if !cfg.HTTPEnabled {
		logger.Info().Msg("http server disabled")
		return
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: server.NewHandler(queryServer, reg, logger),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
