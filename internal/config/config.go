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
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
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
	InitSchema     bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
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
	Scheme          string
	TokenTTLDays    int
	Argon2Time      uint32
	Argon2MemoryKiB uint32
	Argon2Threads   uint8
}

// RateLimitConfig bounds anonymous credential endpoints per client IP.
type RateLimitConfig struct {
	LoginLimit            int
	LoginWindowSeconds    int
	RegisterLimit         int
	RegisterWindowSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "auth-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 15),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			InitSchema:     getEnvAsBool("POSTGRES_INIT_SCHEMA", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			Scheme:          getEnv("AUTH_SCHEME", "Token"),
			TokenTTLDays:    getEnvAsInt("AUTH_TOKEN_TTL_DAYS", 30),
			Argon2Time:      uint32(getEnvAsInt("AUTH_ARGON2_TIME", 2)),
			Argon2MemoryKiB: uint32(getEnvAsInt("AUTH_ARGON2_MEMORY_KIB", 19456)),
			Argon2Threads:   uint8(getEnvAsInt("AUTH_ARGON2_THREADS", 1)),
		},
		RateLimit: RateLimitConfig{
			LoginLimit:            getEnvAsInt("RATE_LIMIT_LOGIN", 10),
			LoginWindowSeconds:    getEnvAsInt("RATE_LIMIT_LOGIN_WINDOW_SECONDS", 300),
			RegisterLimit:         getEnvAsInt("RATE_LIMIT_REGISTER", 5),
			RegisterWindowSeconds: getEnvAsInt("RATE_LIMIT_REGISTER_WINDOW_SECONDS", 3600),
		},
	}

	if cfg.Auth.TokenTTLDays <= 0 {
		return nil, fmt.Errorf("invalid AUTH_TOKEN_TTL_DAYS: must be positive, got %d", cfg.Auth.TokenTTLDays)
	}
	if cfg.Auth.Argon2Time == 0 || cfg.Auth.Argon2MemoryKiB == 0 || cfg.Auth.Argon2Threads == 0 {
		return nil, fmt.Errorf("invalid argon2 parameters: time, memory and threads must be positive")
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

// TokenTTL converts the configured lifetime in days to a duration.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLDays) * 24 * time.Hour
}

// LoginWindow returns the login throttle window.
func (r RateLimitConfig) LoginWindow() time.Duration {
	return time.Duration(r.LoginWindowSeconds) * time.Second
}

// RegisterWindow returns the registration throttle window.
func (r RateLimitConfig) RegisterWindow() time.Duration {
	return time.Duration(r.RegisterWindowSeconds) * time.Second
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
