package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string
	StoragePath string

	MigrateOnStart bool

	// Public base URL advertised to async providers for completion callbacks.
	WebhookBaseURL string

	SupportContact  string
	DefaultLanguage string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	ReplicateAPIKey  string
	ReplicateBaseURL string
	FALAPIKey        string
	FALBaseURL       string
	RunwayAPIKey     string
	RunwayBaseURL    string

	// Per-operation prices in generation credits. Read once at debit time;
	// refunds always use the amount recorded on the generation row.
	RestorationCost     int
	RestorationCostHard int
	VideoGenerationCost int
	ImageUpgradeCost    int
	EffectCost          int

	RestorationConcurrency int
	EffectConcurrency      int
	UpgradeConcurrency     int
	VideoConcurrency       int

	QueueMaxAttempts   int
	QueueBackoffBase   time.Duration
	QueueBackoffMax    time.Duration
	QueueLeaseDuration time.Duration
	QueueRetention     time.Duration
	QueuePollInterval  time.Duration
	QueueSweepInterval time.Duration

	DownloadWaitTimeout time.Duration

	HTTPReadTimeout       time.Duration
	HTTPReadHeaderTimeout time.Duration
	HTTPWriteTimeout      time.Duration
	HTTPIdleTimeout       time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		StoragePath: getEnv("STORAGE_PATH", "./storage"),

		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		WebhookBaseURL: getEnv("WEBHOOK_BASE_URL", "http://localhost:8080"),

		SupportContact:  getEnv("SUPPORT_CONTACT", "@photobot_support"),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),

		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ReplicateAPIKey:  os.Getenv("REPLICATE_API_KEY"),
		ReplicateBaseURL: getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		FALAPIKey:        os.Getenv("FAL_API_KEY"),
		FALBaseURL:       getEnv("FAL_BASE_URL", "https://queue.fal.run"),
		RunwayAPIKey:     os.Getenv("RUNWAY_API_KEY"),
		RunwayBaseURL:    getEnv("RUNWAY_BASE_URL", "https://api.dev.runwayml.com/v1"),

		RestorationCost:     getEnvInt("RESTORATION_COST", 1),
		RestorationCostHard: getEnvInt("RESTORATION_COST_HARD", 3),
		VideoGenerationCost: getEnvInt("VIDEO_GENERATION_COST", 10),
		ImageUpgradeCost:    getEnvInt("IMAGE_UPGRADE_COST", 2),
		EffectCost:          getEnvInt("EFFECT_COST", 1),

		RestorationConcurrency: getEnvInt("RESTORATION_CONCURRENCY", 3),
		EffectConcurrency:      getEnvInt("EFFECT_CONCURRENCY", 5),
		UpgradeConcurrency:     getEnvInt("UPGRADE_CONCURRENCY", 2),
		VideoConcurrency:       getEnvInt("VIDEO_CONCURRENCY", 2),

		QueueMaxAttempts:   getEnvInt("QUEUE_MAX_ATTEMPTS", 3),
		QueueBackoffBase:   time.Second * time.Duration(getEnvInt("QUEUE_BACKOFF_BASE_SECONDS", 2)),
		QueueBackoffMax:    getEnvDuration("QUEUE_BACKOFF_MAX", 5*time.Minute),
		QueueLeaseDuration: getEnvDuration("QUEUE_LEASE_DURATION", 5*time.Minute),
		QueueRetention:     getEnvDuration("QUEUE_RETENTION", 24*time.Hour),
		QueuePollInterval:  getEnvDuration("QUEUE_POLL_INTERVAL", 2*time.Second),
		QueueSweepInterval: getEnvDuration("QUEUE_SWEEP_INTERVAL", 30*time.Second),

		DownloadWaitTimeout: getEnvDuration("DOWNLOAD_WAIT_TIMEOUT", 25*time.Second),

		HTTPReadTimeout:       time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPReadHeaderTimeout: time.Second * time.Duration(getEnvInt("HTTP_READ_HEADER_TIMEOUT_SECONDS", 5)),
		HTTPWriteTimeout:      time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:       time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
