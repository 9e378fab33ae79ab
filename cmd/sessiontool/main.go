// Command sessiontool runs the session conversion bot: upload a session
// container or paste a string session, get it back in any supported
// representation.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/scamwatch/reportbot/internal/config"
	"github.com/scamwatch/reportbot/internal/database"
	"github.com/scamwatch/reportbot/internal/logger"
	"github.com/scamwatch/reportbot/internal/repository"
	"github.com/scamwatch/reportbot/internal/sessionconv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if cfg.BotToken == "" {
		panic("BOT_TOKEN is required")
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting session conversion bot")

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

	if err := os.MkdirAll(cfg.UploadsDir, 0o700); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadsDir).Msg("failed to create uploads dir")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot api client")
	}
	log.Info().Str("username", botAPI.Self.UserName).Msg("authorized on bot account")

	svc := sessionconv.NewService(botAPI, cfg, repository.NewUploadsRepository(db))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := botAPI.GetUpdatesChan(u)

	svc.Run(ctx, updates)

	botAPI.StopReceivingUpdates()
	log.Info().Msg("shutdown complete")
}
