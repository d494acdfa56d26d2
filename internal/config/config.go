package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"ctfd-bot/internal/domain"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DiscordToken  string
	BotChannel    string
	CommandPrefix string
	WebhookURL    string

	DBDriver    string
	DBDSN       string
	DBBootstrap bool

	RoleFilter   domain.RoleFilter
	PollInterval time.Duration
	CacheTTL     time.Duration

	HTTPEnabled bool
	ServerPort  string
	LogLevel    string
}

var drivers = map[string]bool{"sqlite3": true, "postgres": true, "mysql": true}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DiscordToken:  getEnv("DISCORD_TOKEN", ""),
		BotChannel:    getEnv("BOT_CHANNEL", "ctfd-bot"),
		CommandPrefix: getEnv("COMMAND_PREFIX", ">>"),
		WebhookURL:    getEnv("DISCORD_WEBHOOK_URL", ""),
		DBDriver:      getEnv("DB_DRIVER", "sqlite3"),
		DBDSN:         getEnv("DB_DSN", "ctfd.db"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.RoleFilter, err = domain.ParseRoleFilter(getEnv("ROLE_FILTER", string(domain.FilterPlayers))); err != nil {
		return nil, fmt.Errorf("invalid ROLE_FILTER: %w", err)
	}
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DBBootstrap, err = getBool("DB_BOOTSTRAP", false); err != nil {
		return nil, err
	}
	if cfg.HTTPEnabled, err = getBool("HTTP_ENABLED", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("bot_channel", cfg.BotChannel).
		Str("command_prefix", cfg.CommandPrefix).
		Bool("webhook", cfg.WebhookURL != "").
		Str("db_driver", cfg.DBDriver).
		Str("role_filter", string(cfg.RoleFilter)).
		Dur("poll_interval", cfg.PollInterval).
		Dur("cache_ttl", cfg.CacheTTL).
		Bool("http_enabled", cfg.HTTPEnabled).
		Str("log_level", cfg.LogLevel).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if !drivers[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBBootstrap && c.DBDriver != "sqlite3" {
		return fmt.Errorf("DB_BOOTSTRAP is only supported with sqlite3")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.CommandPrefix == "" {
		return fmt.Errorf("COMMAND_PREFIX must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

var Module = fx.Provide(Load)
