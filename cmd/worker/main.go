package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"photobot/internal/adapter/repo"
	"photobot/internal/domain"
	"photobot/internal/infra"
	"photobot/internal/notify"
	"photobot/internal/providers"
	"photobot/internal/providers/fal"
	"photobot/internal/providers/openai"
	"photobot/internal/providers/replicate"
	"photobot/internal/providers/runway"
	"photobot/internal/queue"
	"photobot/internal/storage"
	"photobot/internal/worker"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}

	sqlRunner := infra.NewSQLRunner(dbpool, logger)

	engine := queue.NewPostgresEngine(sqlRunner, queue.Config{
		MaxAttempts:   cfg.QueueMaxAttempts,
		LeaseDuration: cfg.QueueLeaseDuration,
		BackoffBase:   cfg.QueueBackoffBase,
		BackoffMax:    cfg.QueueBackoffMax,
		Retention:     cfg.QueueRetention,
	}, logger)

	providerHTTP := &http.Client{Timeout: 120 * time.Second}

	replicateClient, err := replicate.NewClient(replicate.Options{
		APIKey:     cfg.ReplicateAPIKey,
		BaseURL:    cfg.ReplicateBaseURL,
		HTTPClient: providerHTTP,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init replicate client")
	}
	openaiClient, err := openai.NewClient(openai.Options{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		HTTPClient: providerHTTP,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init openai client")
	}
	falClient, err := fal.NewClient(fal.Options{
		APIKey:     cfg.FALAPIKey,
		BaseURL:    cfg.FALBaseURL,
		HTTPClient: providerHTTP,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init fal client")
	}
	runwayClient, err := runway.NewClient(runway.Options{
		APIKey:     cfg.RunwayAPIKey,
		BaseURL:    cfg.RunwayBaseURL,
		HTTPClient: providerHTTP,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init runway client")
	}

	runner := worker.NewRunner(worker.Deps{
		Generations: repo.NewGenerationRepository(sqlRunner),
		Ledger:      repo.NewLedger(sqlRunner),
		Notifier:    notify.NewRedisPublisher(redisClient, ""),
		Store:       store,
		Restorer:    replicateClient,
		Upscaler:    falClient,
		Video:       runwayClient,
		Effectors: map[string]providers.Effector{
			"replicate": replicateClient,
			"openai":    openaiClient,
			"fal":       falClient,
		},
		Logger: logger,
	}, worker.Options{
		Costs: worker.Costs{
			Restoration:     cfg.RestorationCost,
			RestorationHard: cfg.RestorationCostHard,
			Effect:          cfg.EffectCost,
			Upgrade:         cfg.ImageUpgradeCost,
			Video:           cfg.VideoGenerationCost,
		},
		SupportContact:  cfg.SupportContact,
		WebhookBaseURL:  cfg.WebhookBaseURL,
		DownloadTimeout: cfg.DownloadWaitTimeout,
	})

	pools := []*worker.Pool{
		worker.NewPool(engine, domain.KindRestoration.QueueName(), runner, cfg.RestorationConcurrency, cfg.QueuePollInterval, logger),
		worker.NewPool(engine, domain.KindEffect.QueueName(), runner, cfg.EffectConcurrency, cfg.QueuePollInterval, logger),
		worker.NewPool(engine, domain.KindUpgrade.QueueName(), runner, cfg.UpgradeConcurrency, cfg.QueuePollInterval, logger),
		worker.NewPool(engine, domain.KindVideo.QueueName(), runner, cfg.VideoConcurrency, cfg.QueuePollInterval, logger),
	}

	sweeper := queue.NewSweeper(engine, cfg.QueueSweepInterval, cfg.QueueRetention, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()
	for _, pool := range pools {
		wg.Add(1)
		go func(p *worker.Pool) {
			defer wg.Done()
			p.Run(ctx)
		}(pool)
	}

	logger.Info().Msg("worker started")
	<-ctx.Done()
	logger.Info().Msg("shutting down, draining in-flight jobs")
	wg.Wait()
	logger.Info().Msg("worker stopped")
}
