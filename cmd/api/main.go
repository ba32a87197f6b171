package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"photobot/internal/adapter/repo"
	"photobot/internal/http/handlers"
	httpapi "photobot/internal/http/httpapi"
	"photobot/internal/infra"
	"photobot/internal/notify"
	"photobot/internal/queue"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.MigrateOnStart {
		if err := infra.Migrate(cfg); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	sqlRunner := infra.NewSQLRunner(dbpool, logger)

	engine := queue.NewPostgresEngine(sqlRunner, queue.Config{
		MaxAttempts:   cfg.QueueMaxAttempts,
		LeaseDuration: cfg.QueueLeaseDuration,
		BackoffBase:   cfg.QueueBackoffBase,
		BackoffMax:    cfg.QueueBackoffMax,
		Retention:     cfg.QueueRetention,
	}, logger)

	app := &handlers.App{
		Generations:     repo.NewGenerationRepository(sqlRunner),
		Ledger:          repo.NewLedger(sqlRunner),
		Engine:          engine,
		Notifier:        notify.NewRedisPublisher(redisClient, ""),
		Logger:          logger,
		SupportContact:  cfg.SupportContact,
		DefaultLanguage: cfg.DefaultLanguage,
	}

	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
