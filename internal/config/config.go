package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Subscription SubscriptionConfig
	Worker       WorkerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	AccessTokenTTLMinutes   int
	PasswordResetTTLMinutes int
	BcryptCost              int
}

// SubscriptionConfig defines tier quotas for metered usage.
type SubscriptionConfig struct {
	FreeMonthlyQuestions       int
	ProMonthlyQuestions        int
	VIPMonthlyQuestions        int
	EnterpriseMonthlyQuestions int
}

// WorkerConfig controls background loops.
type WorkerConfig struct {
	ExpirationSweepSeconds int
	UsageRetrySeconds      int
	RequestTTLHours        int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "help-request-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Subscription: SubscriptionConfig{
			FreeMonthlyQuestions:       getEnvAsInt("SUB_FREE_MONTHLY_QUESTIONS", 3),
			ProMonthlyQuestions:        getEnvAsInt("SUB_PRO_MONTHLY_QUESTIONS", 25),
			VIPMonthlyQuestions:        getEnvAsInt("SUB_VIP_MONTHLY_QUESTIONS", 100),
			EnterpriseMonthlyQuestions: getEnvAsInt("SUB_ENTERPRISE_MONTHLY_QUESTIONS", 0),
		},
		Worker: WorkerConfig{
			ExpirationSweepSeconds: getEnvAsInt("WORKER_EXPIRATION_SWEEP_SECONDS", 60),
			UsageRetrySeconds:      getEnvAsInt("WORKER_USAGE_RETRY_SECONDS", 30),
			RequestTTLHours:        getEnvAsInt("REQUEST_TTL_HOURS", 72),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SweepInterval returns the expiration sweep cadence.
func (w WorkerConfig) SweepInterval() time.Duration {
	if w.ExpirationSweepSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(w.ExpirationSweepSeconds) * time.Second
}

// UsageRetryInterval returns the usage retry cadence.
func (w WorkerConfig) UsageRetryInterval() time.Duration {
	if w.UsageRetrySeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(w.UsageRetrySeconds) * time.Second
}

// RequestTTL returns how long a new request stays claimable.
func (w WorkerConfig) RequestTTL() time.Duration {
	if w.RequestTTLHours <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(w.RequestTTLHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
