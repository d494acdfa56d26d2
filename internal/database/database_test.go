package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"ctfd-bot/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t,
		"ctfd.db?_busy_timeout=5000&_foreign_keys=on&_cache_size=-16000&_query_only=on",
		sqliteDSN("ctfd.db", true))
	assert.Equal(t, "file:ctfd.db?mode=ro&_busy_timeout=5000&_foreign_keys=on&_cache_size=-16000",
		sqliteDSN("file:ctfd.db?mode=ro", false))
}

func TestSqliteDSNKeepsExplicitPragmas(t *testing.T) {
	dsn := sqliteDSN("file:ctfd.db?_busy_timeout=100", false)
	assert.Equal(t, "file:ctfd.db?_busy_timeout=100&_foreign_keys=on&_cache_size=-16000", dsn)
}

func TestDriverDSNMySQL(t *testing.T) {
	dsn, err := driverDSN(&config.Config{DBDriver: "mysql", DBDSN: "ctfd:ctfd@tcp(db:3306)/ctfd"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")

	_, err = driverDSN(&config.Config{DBDriver: "mysql", DBDSN: "not a dsn"})
	assert.Error(t, err)
}

func TestStatementBuilderPlaceholders(t *testing.T) {
	query, _, err := NewStatementBuilder(&config.Config{DBDriver: "postgres"}).
		Select("id").From("users").Where("name = ?", "user1").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM users WHERE name = $1", query)

	query, _, err = NewStatementBuilder(&config.Config{DBDriver: "mysql"}).
		Select("id").From("users").Where("name = ?", "user1").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM users WHERE name = ?", query)
}

func TestNewBootstrapsSchema(t *testing.T) {
	cfg := &config.Config{
		DBDriver:    "sqlite3",
		DBDSN:       filepath.Join(t.TempDir(), "ctfd.db"),
		DBBootstrap: true,
	}
	db, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"users", "challenges", "submissions", "solves", "config"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestNewClosesPoolWhenBootstrapFails(t *testing.T) {
	var opened *sql.DB
	orig := migrate
	migrate = func(db *sql.DB, _ zerolog.Logger) error {
		opened = db
		return errors.New("bad migration")
	}
	t.Cleanup(func() { migrate = orig })

	cfg := &config.Config{
		DBDriver:    "sqlite3",
		DBDSN:       filepath.Join(t.TempDir(), "ctfd.db"),
		DBBootstrap: true,
	}
	db, err := New(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, db)

	require.NotNil(t, opened)
	assert.ErrorContains(t, opened.Ping(), "database is closed")
}
