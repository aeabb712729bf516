package main

import (
	"database/sql"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"innkeeper/internal/config"
	"innkeeper/internal/database"
	"innkeeper/internal/queue"
	"innkeeper/internal/router"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "innkeeper").Logger()
	if os.Getenv("APP_ENV") != "prod" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}

	cfg := config.Load()

	var (
		db  *sql.DB
		err error
	)
	switch cfg.DBDriver {
	case "sqlite":
		db, err = database.OpenSQLite(cfg.DBPath)
	default:
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database connection failed")
	}
	defer func() { _ = db.Close() }()
	log.Info().Str("driver", cfg.DBDriver).Msg("database connected")

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable, cache and rate limiting disabled")
	}

	// Background consumer drains the reservation event queue into the audit
	// log. It reconnects on its own; a missing broker only costs the events.
	go queue.StartConsumer(log)

	e := router.New(router.Deps{Cfg: cfg, DB: db, Redis: rdb, Log: log})
	log.Info().Str("port", cfg.Port).Msg("starting server")
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
