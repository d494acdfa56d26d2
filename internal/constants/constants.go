package constants

import "time"

const (
	QueryTimeout   = 5 * time.Second
	CommandTimeout = 15 * time.Second
	ReportTimeout  = 10 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 4
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	ScoreboardTopN      = 20
	FlushHistoryLimit   = 100
	FlushNoticeKeepTime = 30 * time.Second
	EmbedFieldLimit     = 1024
	ChallengeCacheSize  = 500
)

const (
	WebhookTimeout = 10 * time.Second
)
