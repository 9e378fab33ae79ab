// Command bot runs the fraud-report intake bot: the submission
// conversation, the admin review workflow, the background loops and the
// ops HTTP endpoint.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/scamwatch/reportbot/internal/api"
	"github.com/scamwatch/reportbot/internal/bot"
	"github.com/scamwatch/reportbot/internal/config"
	"github.com/scamwatch/reportbot/internal/database"
	"github.com/scamwatch/reportbot/internal/logger"
	"github.com/scamwatch/reportbot/internal/notifier"
	"github.com/scamwatch/reportbot/internal/publisher"
	"github.com/scamwatch/reportbot/internal/repository"
	"github.com/scamwatch/reportbot/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if cfg.BotToken == "" {
		panic("BOT_TOKEN is required")
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting report bot")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Connect to database
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	// 5. Connect to NATS
	var events publisher.EventPublisher = publisher.Noop{}
	if cfg.NatsURL != "" {
		js, err := publisher.Connect(ctx, cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
		} else {
			events = js
		}
	}

	// 6. Initialize repositories
	reportsRepo := repository.NewReportsRepository(db)
	quotaRepo := repository.NewQuotaRepository(db)
	handlesRepo := repository.NewHandlesRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// 7. Optional MTProto pool for handle resolution
	var resolver telegram.Resolver = telegram.NoopResolver{}
	if cfg.TGApiID != 0 && cfg.TGApiHash != "" {
		pool, err := telegram.LoadPool(ctx, cfg, cfg.SessionsDir)
		if err != nil {
			log.Warn().Err(err).Msg("no account pool, handle resolution disabled")
		} else {
			defer pool.Close()
			resolver = telegram.NewAccountResolver(pool)
		}
	}

	// 8. Bot API client
	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot api client")
	}
	log.Info().Str("username", botAPI.Self.UserName).Msg("authorized on bot account")

	svc := bot.New(botAPI, cfg, reportsRepo, quotaRepo, handlesRepo, statsRepo, resolver, events)

	// 9. Background loops
	statusNotifier := notifier.NewStatusNotifier(reportsRepo, svc, events, cfg.NotifyInterval, log)
	go statusNotifier.Run(ctx)

	handleWatcher := notifier.NewHandleWatcher(handlesRepo, resolver, svc, cfg.WatchInterval, log)
	go handleWatcher.Run(ctx)

	// 10. Ops HTTP endpoint
	opsServer := api.NewServer(cfg.HTTPPort, api.NewHandler(reportsRepo, statsRepo), log)
	go func() {
		if err := opsServer.Start(); err != nil {
			log.Error().Err(err).Msg("ops server error")
		}
	}()

	// 11. Consume updates
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := botAPI.GetUpdatesChan(u)

	go svc.Run(ctx, updates)

	// 12. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down...")

	botAPI.StopReceivingUpdates()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := opsServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops server shutdown failed")
	}

	log.Info().Msg("shutdown complete")
}
