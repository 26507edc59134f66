package config

import (
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/tracelog"
)

// Config is loaded once at process start. All values can be overridden
// through FORUM_* environment variables; the defaults are suitable for
// local development.
var Config = ForumConfig{
	Env:      Environment(envOr("FORUM_ENV", string(Dev))),
	LogLevel: envOr("FORUM_LOG_LEVEL", "info"),
	Postgres: PostgresConfig{
		User:     envOr("FORUM_PG_USER", "forum"),
		Password: envOr("FORUM_PG_PASSWORD", "password"),
		Hostname: envOr("FORUM_PG_HOST", "localhost"),
		Port:     envIntOr("FORUM_PG_PORT", 5432),
		DbName:   envOr("FORUM_PG_DBNAME", "forum"),
		LogLevel: tracelog.LogLevelWarn,
		MinConn:  int32(envIntOr("FORUM_PG_MIN_CONN", 2)),
		MaxConn:  int32(envIntOr("FORUM_PG_MAX_CONN", 10)),
	},
	Mongo: MongoConfig{
		Uri:         envOr("FORUM_MONGO_URI", "mongodb://localhost:27017"),
		Database:    envOr("FORUM_MONGO_DBNAME", "cs_comments_service"),
		Username:    os.Getenv("FORUM_MONGO_USER"),
		Password:    os.Getenv("FORUM_MONGO_PASSWORD"),
		AuthSource:  envOr("FORUM_MONGO_AUTH_SOURCE", "admin"),
		MaxPoolSize: uint64(envIntOr("FORUM_MONGO_MAX_POOL", 20)),
	},
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
