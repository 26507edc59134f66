package config

import (
	"fmt"

	"github.com/jackc/pgx/v5/tracelog"
)

type Environment string

const (
	Live Environment = "live"
	Dev              = "dev"
)

type ForumConfig struct {
	Env      Environment
	LogLevel string

	Postgres PostgresConfig
	Mongo    MongoConfig
}

type PostgresConfig struct {
	User     string
	Password string
	Hostname string
	Port     int
	DbName   string
	LogLevel tracelog.LogLevel
	MinConn  int32
	MaxConn  int32
}

func (info PostgresConfig) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type MongoConfig struct {
	Uri         string
	Database    string
	Username    string
	Password    string
	AuthSource  string
	MaxPoolSize uint64
}
