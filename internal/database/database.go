package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"ctfd-bot/internal/config"
	"ctfd-bot/internal/constants"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// Migrations create a CTFd-compatible schema for local runs and tests. The
// bot never migrates a real CTFd database.
//
//go:embed migrations/*.sql
var embedMigrations embed.FS

var migrate = runMigrations

func New(cfg *config.Config, logger zerolog.Logger) (*sql.DB, error) {
	logger.Info().Str("driver", cfg.DBDriver).Msg("connecting to database")

	dsn, err := driverDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.DBDriver, dsn)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(constants.DBMaxOpenConns)
	db.SetMaxIdleConns(constants.DBMaxIdleConns)
	db.SetConnMaxLifetime(constants.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(constants.DBMaxIdleTime)

	if cfg.DBBootstrap {
		if err := migrate(db, logger); err != nil {
			logger.Error().Err(err).Msg("failed to run migrations")
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// an unreachable store is retried by every poll, so startup goes on
	ctx, cancel := context.WithTimeout(context.Background(), constants.QueryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Warn().Err(err).Msg("database not reachable yet")
	} else {
		logger.Info().Msg("database connection established")
	}

	return db, nil
}

// NewStatementBuilder returns a squirrel builder using the driver's placeholders.
func NewStatementBuilder(cfg *config.Config) sq.StatementBuilderType {
	if cfg.DBDriver == "postgres" {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func driverDSN(cfg *config.Config) (string, error) {
	switch cfg.DBDriver {
	case "sqlite3":
		return sqliteDSN(cfg.DBDSN, !cfg.DBBootstrap), nil
	case "mysql":
		mc, err := mysql.ParseDSN(cfg.DBDSN)
		if err != nil {
			return "", fmt.Errorf("failed to parse mysql DSN: %w", err)
		}
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	}
	return cfg.DBDSN, nil
}

// sqliteDSN sets pragmas through DSN parameters so that every pooled
// connection carries them.
func sqliteDSN(dsn string, readOnly bool) string {
	type pragma struct {
		name  string
		value string
	}
	pragmas := []pragma{
		{"_busy_timeout", "5000"},
		{"_foreign_keys", "on"},
		{"_cache_size", "-16000"},
	}
	if readOnly {
		pragmas = append(pragmas, pragma{"_query_only", "on"})
	}

	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		if strings.Contains(dsn, p.name+"=") {
			continue
		}
		params = append(params, p.name+"="+p.value)
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func runMigrations(db *sql.DB, logger zerolog.Logger) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	logger.Info().Msg("migrations completed successfully")
	return nil
}
