package app

import (
	"time"

	"github.com/yungbote/replygen-backend/internal/clients/redis"
	"github.com/yungbote/replygen-backend/internal/data/db"
	"github.com/yungbote/replygen-backend/internal/jobs/worker"
	chatmod "github.com/yungbote/replygen-backend/internal/modules/chat"
	"github.com/yungbote/replygen-backend/internal/observability"
	"github.com/yungbote/replygen-backend/internal/platform/envutil"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

type Config struct {
	Port string

	DBDriver string
	Postgres db.PostgresConfig

	// Redis is optional; without it coordination hints and broadcasts stay in process.
	Redis        redis.Config
	RedisChannel string

	Worker worker.Config
	Chat   chatmod.Config

	OpenAIBaseURL      string
	AnthropicBaseURL   string
	AnthropicMaxTokens int
	LLMTimeout         time.Duration
	CatalogFile        string

	// CredentialsSecret keys encryption of stored provider keys and tokens.
	CredentialsSecret string

	CORSOrigins []string
	Otel        observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	wdef := worker.DefaultConfig()
	cdef := chatmod.DefaultConfig()
	cfg := Config{
		Port:     envutil.String("PORT", "8080"),
		DBDriver: envutil.String("DB_DRIVER", DBDriverPostgres),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "replygen"),
		},
		Redis: redis.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
		},
		RedisChannel: envutil.String("REDIS_CHANNEL", "replygen:sse"),
		Worker: worker.Config{
			Concurrency:    envutil.Int("WORKER_CONCURRENCY", wdef.Concurrency),
			PollInterval:   envutil.Duration("WORKER_POLL_INTERVAL", wdef.PollInterval),
			MaxAttempts:    envutil.Int("JOB_MAX_ATTEMPTS", wdef.MaxAttempts),
			BackoffUnit:    envutil.Duration("JOB_BACKOFF_UNIT", wdef.BackoffUnit),
			StaleRunning:   envutil.Duration("JOB_STALE_RUNNING", wdef.StaleRunning),
			HeartbeatEvery: envutil.Duration("JOB_HEARTBEAT_EVERY", wdef.HeartbeatEvery),
		},
		Chat: chatmod.Config{
			BroadcastThrottle:   envutil.Duration("BROADCAST_THROTTLE", cdef.BroadcastThrottle),
			DurableRecheckEvery: envutil.Int("CANCEL_DURABLE_RECHECK_EVERY", cdef.DurableRecheckEvery),
			ClaimLease:          envutil.Duration("CLAIM_LEASE", cdef.ClaimLease),
		},
		OpenAIBaseURL:      envutil.String("OPENAI_BASE_URL", ""),
		AnthropicBaseURL:   envutil.String("ANTHROPIC_BASE_URL", ""),
		AnthropicMaxTokens: envutil.Int("ANTHROPIC_MAX_TOKENS", 0),
		LLMTimeout:         envutil.Duration("LLM_TIMEOUT", 5*time.Minute),
		CatalogFile:        envutil.String("LLM_CATALOG_FILE", ""),
		CredentialsSecret:  envutil.String("CREDENTIALS_ENCRYPTION_KEY", ""),
		CORSOrigins:        envutil.List("CORS_ALLOW_ORIGINS", nil),
		Otel:               observability.OtelConfigFromEnv(),
	}
	if cfg.DBDriver != DBDriverPostgres && cfg.DBDriver != DBDriverSQLite {
		log.Warn("Unknown DB_DRIVER, using postgres", "db_driver", cfg.DBDriver)
		cfg.DBDriver = DBDriverPostgres
	}
	log.Info("Config loaded",
		"db_driver", cfg.DBDriver,
		"redis", cfg.Redis.Addr != "",
		"worker_concurrency", cfg.Worker.Concurrency,
		"job_max_attempts", cfg.Worker.MaxAttempts,
		"broadcast_throttle", cfg.Chat.BroadcastThrottle,
	)
	return cfg
}
