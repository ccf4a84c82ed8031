package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=silvess port=5432 sslmode=disable"

type Config struct {
	Env            string
	HTTPPort       string
	DBDriver       string // postgres | sqlite
	DatabaseDSN    string
	DBMaxOpenConns int
	DBLogLevel     string
	JWTSecret      string
	JWTExpiry      time.Duration
	CORSOrigins    string
	FrontendURL    string // public menu page the table QR codes point at
	LogLevel       string

	RedisAddr           string
	RedisPassword       string
	LoginRateLimit      int
	MetricsEnabled      bool
	ShutdownGracePeriod time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is honoured when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] could not read .env: %v", err)
	}

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		DBDriver:            strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseDSN:         getEnv("DATABASE_DSN", defaultDSN),
		DBMaxOpenConns:      getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
		DBLogLevel:          getEnv("DB_LOG_LEVEL", "warn"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTExpiry:           getEnvAsDuration("JWT_EXPIRY", 7*24*time.Hour),
		CORSOrigins:         getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:8000"),
		FrontendURL:         strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:8000"), "/"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		LoginRateLimit:      getEnvAsInt("LOGIN_RATE_LIMIT_PER_MINUTE", 10),
		MetricsEnabled:      getEnvAsBool("METRICS_ENABLED", true),
		ShutdownGracePeriod: getEnvAsDuration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.DBDriver == "postgres" && cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN is using the default value, set your own Postgres DSN for production.")
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return errors.New("DB_DRIVER must be postgres or sqlite")
	}
	if c.JWTExpiry <= 0 {
		return errors.New("JWT_EXPIRY must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return def
}
