// Command scheduler runs the multi-account message scheduler: a pool of
// authenticated sessions, round-robin sends, and persisted one-shot and
// recurring jobs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/scamwatch/reportbot/internal/config"
	"github.com/scamwatch/reportbot/internal/database"
	"github.com/scamwatch/reportbot/internal/logger"
	"github.com/scamwatch/reportbot/internal/repository"
	"github.com/scamwatch/reportbot/internal/scheduler"
	"github.com/scamwatch/reportbot/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting message scheduler")

	if cfg.TGApiID == 0 || cfg.TGApiHash == "" {
		log.Fatal().Msg("TG_API_ID and TG_API_HASH are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	pool, err := telegram.LoadPool(ctx, cfg, cfg.SessionsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load account pool")
	}
	defer pool.Close()
	log.Info().Int("accounts", pool.Size()).Msg("account pool ready")

	jobsRepo := repository.NewJobsRepository(db)
	sched := scheduler.New(jobsRepo, scheduler.NewPoolSender(pool), cfg.SchedulerPoll)

	sched.Run(ctx)
	log.Info().Msg("shutdown complete")
}
