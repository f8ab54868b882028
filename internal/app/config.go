package app

import (
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/ordersignal-backend/internal/mail"
	"github.com/yungbote/ordersignal-backend/internal/mailqueue"
	"github.com/yungbote/ordersignal-backend/internal/observability"
	"github.com/yungbote/ordersignal-backend/internal/platform/envutil"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
	"github.com/yungbote/ordersignal-backend/internal/platform/redisx"
	"github.com/yungbote/ordersignal-backend/internal/platform/sendgrid"
	"github.com/yungbote/ordersignal-backend/internal/polling"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	Redis          redisx.Config
	JWTSecret      string
	InternalAPIKey string
	CORSOrigins    []string

	Store       polling.StoreConfig
	Publisher   polling.PublisherConfig
	Coordinator polling.CoordinatorConfig

	Queue          mailqueue.Config
	Worker         mailqueue.WorkerConfig
	WorkerEnabled  bool
	LockEnabled    bool
	AdminRecipient string
	SendGrid       sendgrid.Config
	Company        mail.Company

	MetricsEnabled  bool
	MetricsAddr     string
	MetricsInterval time.Duration
	Otel            observability.OtelConfig
}

// LoadConfig reads .env (when present) and then the process environment.
func LoadConfig(log *logger.Logger) Config {
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded .env file")
	}

	environment := envutil.String("ENVIRONMENT", "development")
	maxPage := envutil.Int("MAX_EVENTS_PER_POLL", polling.DefaultMaxPage)
	defaultTTLSeconds := envutil.Int64("DEFAULT_TTL_SECONDS", polling.DefaultTTLSeconds)
	lockEnabled := envutil.Bool("EMAIL_WORKER_LOCK_ENABLED", true)

	worker := mailqueue.WorkerConfig{
		MaxRetries: envutil.Int("EMAIL_MAX_RETRIES", 3),
		IdlePoll:   envutil.Millis("EMAIL_IDLE_POLL_MS", time.Second),
		JobTimeout: envutil.Seconds("EMAIL_JOB_TIMEOUT_SECONDS", 30*time.Second),
	}
	if envutil.Bool("EMAIL_REAPER_ENABLED", false) {
		worker.ReaperInterval = envutil.Seconds("EMAIL_REAPER_INTERVAL_SECONDS", time.Minute)
	}

	cfg := Config{
		Port:        envutil.String("PORT", "9001"),
		Environment: environment,
		Version:     envutil.String("SERVICE_VERSION", "dev"),

		Redis: redisx.Config{
			Addr:         redisAddr(),
			Password:     envutil.String("REDIS_PASSWORD", ""),
			DB:           envutil.Int("REDIS_DB", 0),
			PoolSize:     envutil.Int("REDIS_POOL_SIZE", 50),
			MinIdleConns: envutil.Int("REDIS_MIN_IDLE_CONNS", 10),
		},
		JWTSecret:      envutil.String("JWT_SECRET", ""),
		InternalAPIKey: envutil.String("INTERNAL_API_KEY", ""),
		CORSOrigins:    envutil.CSV("CORS_ALLOWED_ORIGINS", []string{"*"}),

		Store: polling.StoreConfig{
			MaxPage:    maxPage,
			DefaultTTL: time.Duration(defaultTTLSeconds) * time.Second,
		},
		Publisher: polling.PublisherConfig{
			DefaultTTLSeconds: defaultTTLSeconds,
		},
		Coordinator: polling.CoordinatorConfig{
			MaxPage:             maxPage,
			LongPollTimeout:     envutil.Millis("LONG_POLL_TIMEOUT_MS", 25*time.Second),
			RetryInterval:       envutil.Millis("LONG_POLL_RETRY_MS", time.Second),
			ShortPollIntervalMs: envutil.Int64("SHORT_POLL_INTERVAL_MS", 5000),
			LongPollIntervalMs:  envutil.Int64("LONG_POLL_INTERVAL_MS", 30000),
		},

		Queue: mailqueue.Config{
			VisibilityTimeout: envutil.Seconds("EMAIL_VISIBILITY_TIMEOUT_SECONDS", 5*time.Minute),
			BackoffBase:       envutil.Millis("EMAIL_BACKOFF_BASE_MS", time.Second),
		},
		Worker:         worker,
		WorkerEnabled:  envutil.Bool("EMAIL_WORKER_ENABLED", true),
		LockEnabled:    lockEnabled,
		AdminRecipient: envutil.String("EMAIL_ADMIN_RECIPIENT", ""),
		SendGrid:       sendgrid.ConfigFromEnv(),
		Company: mail.Company{
			Name:    envutil.String("COMPANY_NAME", "Order Signal"),
			Tagline: envutil.String("COMPANY_TAGLINE", ""),
			Address: envutil.String("COMPANY_ADDRESS", ""),
			Phone:   envutil.String("COMPANY_PHONE", ""),
			Email:   envutil.String("COMPANY_EMAIL", ""),
			Website: envutil.String("COMPANY_WEBSITE", ""),
		},

		MetricsEnabled:  envutil.Bool("METRICS_ENABLED", false),
		MetricsAddr:     envutil.String("METRICS_ADDR", ""),
		MetricsInterval: envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "ordersignal"),
			Environment: environment,
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float64("OTEL_SAMPLER_RATIO", 0.1),
		},
	}
	cfg.Otel.Version = cfg.Version
	return cfg
}

// REDIS_ADDR wins; otherwise REDIS_HOST and REDIS_PORT are joined.
func redisAddr() string {
	if addr := envutil.String("REDIS_ADDR", ""); addr != "" {
		return addr
	}
	return net.JoinHostPort(envutil.String("REDIS_HOST", "localhost"), envutil.String("REDIS_PORT", "6379"))
}

func (c Config) ListenAddr() string {
	port := strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	return ":" + port
}
