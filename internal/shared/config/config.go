package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// Config holds the process configuration, read once at startup.
type Config struct {
	HTTPAddr    string
	Env         string
	StoreDriver string // "postgres" or "memory"

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	DBMaxConns       int
	DBMinConns       int
	DBConnectTimeout time.Duration

	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NatsURL string

	CloserInterval    time.Duration
	CloserBatch       int
	CloserConcurrency int

	LaneQueueDepth    int
	PersistMaxRetries int

	BlindMask        string // "ranking" or "amounts"
	BlindRevealPrice bool
}

// Load reads .env (when present) and then the environment, applying defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := &envReader{}
	cfg := &Config{
		HTTPAddr:          GetEnv("HTTP_ADDR", ":9000"),
		Env:               GetEnv("APP_ENV", "development"),
		StoreDriver:       GetEnv("STORE_DRIVER", "postgres"),
		DBHost:            GetEnv("DB_HOST", "localhost"),
		DBPort:            GetEnv("DB_PORT", "5432"),
		DBUser:            GetEnv("DB_USER", "postgres"),
		DBPassword:        GetEnv("DB_PASSWORD", ""),
		DBName:            GetEnv("DB_NAME", "bidengine"),
		DBSSLMode:         GetEnv("DB_SSLMODE", "disable"),
		DBMaxConns:        env.Int("DB_MAX_CONNS", 20),
		DBMinConns:        env.Int("DB_MIN_CONNS", 2),
		DBConnectTimeout:  env.Duration("DB_CONNECT_TIMEOUT", 30*time.Second),
		MigrationsPath:    GetEnv("MIGRATIONS_PATH", "file://internal/shared/db/migrations/sql"),
		RedisAddr:         GetEnv("REDIS_ADDR", ""),
		RedisPassword:     GetEnv("REDIS_PASSWORD", ""),
		RedisDB:           env.Int("REDIS_DB", 0),
		NatsURL:           GetEnv("NATS_URL", ""),
		CloserInterval:    env.Duration("CLOSER_INTERVAL", time.Second),
		CloserBatch:       env.Int("CLOSER_BATCH", 100),
		CloserConcurrency: env.Int("CLOSER_CONCURRENCY", 8),
		LaneQueueDepth:    env.Int("LANE_QUEUE_DEPTH", 64),
		PersistMaxRetries: env.Int("PERSIST_MAX_RETRIES", 3),
		BlindMask:         GetEnv("BLIND_MASK", "ranking"),
		BlindRevealPrice:  env.Bool("BLIND_REVEAL_PRICE", false),
	}

	if env.err != nil {
		return nil, env.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.BlindMask {
	case "ranking", "amounts":
	default:
		return fmt.Errorf("config: unknown BLIND_MASK %q", c.BlindMask)
	}
	if c.LaneQueueDepth <= 0 {
		return fmt.Errorf("config: LANE_QUEUE_DEPTH must be positive, got %d", c.LaneQueueDepth)
	}
	if c.PersistMaxRetries < 0 {
		return fmt.Errorf("config: PERSIST_MAX_RETRIES cannot be negative, got %d", c.PersistMaxRetries)
	}
	if c.CloserInterval <= 0 {
		return fmt.Errorf("config: CLOSER_INTERVAL must be positive, got %s", c.CloserInterval)
	}
	return nil
}

// PostgresDSN builds the pgx connection string from the DB_* settings.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func GetEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// envReader parses typed variables and collects every malformed value, so a typo in the
// environment fails Load instead of silently running with the default.
type envReader struct {
	err error
}

func (r *envReader) fail(key, value string, err error) {
	r.err = multierr.Append(r.err, fmt.Errorf("config: invalid %s=%q: %w", key, value, err))
}

func (r *envReader) Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return n
}

func (r *envReader) Bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return b
}

func (r *envReader) Duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return d
}
