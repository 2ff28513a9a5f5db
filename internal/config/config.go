package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=magaza port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	Redis RedisConfig
	Stock StockConfig
	Jobs  JobsConfig
}

// RedisConfig boş Addr ile gelirse tarama kilidi veritabanında tutulur.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StockConfig struct {
	LowStockThreshold  int
	AllowNegativeStock bool
	ScanThrottleTTL    time.Duration
	ScanSchedule       string
	ScanLogFile        string
}

type JobsConfig struct {
	Workers   int
	QueueSize int
}

// Load ortam değişkenlerini (varsa .env dosyasıyla birlikte) okur.
func Load() (*Config, error) {
	// .env yoksa sorun değil, ortam değişkenleri doğrudan kullanılır
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Stock: StockConfig{
			ScanSchedule: getEnv("STOCK_SCAN_SCHEDULE", "@every 1m"),
			ScanLogFile:  getEnv("STOCK_SCAN_LOG_FILE", "logs/stock-check-low.log"),
		},
	}

	var err error
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.Stock.LowStockThreshold, err = getEnvInt("LOW_STOCK_THRESHOLD", 10); err != nil {
		return nil, err
	}
	if cfg.Stock.AllowNegativeStock, err = getEnvBool("ALLOW_NEGATIVE_STOCK", false); err != nil {
		return nil, err
	}
	if cfg.Stock.ScanThrottleTTL, err = getEnvDuration("SCAN_THROTTLE_TTL", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.Jobs.Workers, err = getEnvInt("JOB_WORKERS", 1); err != nil {
		return nil, err
	}
	if cfg.Jobs.QueueSize, err = getEnvInt("JOB_QUEUE_SIZE", 16); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate zorunlu alanları ve sınırları kontrol eder.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT must be provided")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be provided")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.Stock.LowStockThreshold < 0 {
		return errors.New("LOW_STOCK_THRESHOLD must not be negative")
	}
	if c.Stock.ScanThrottleTTL <= 0 {
		return errors.New("SCAN_THROTTLE_TTL must be positive")
	}
	if strings.TrimSpace(c.Stock.ScanSchedule) == "" {
		return errors.New("STOCK_SCAN_SCHEDULE must be provided")
	}
	if c.Jobs.Workers < 1 {
		return errors.New("JOB_WORKERS must be at least 1")
	}
	if c.Jobs.QueueSize < 1 {
		return errors.New("JOB_QUEUE_SIZE must be at least 1")
	}
	return nil
}

// UsesDefaultDSN geliştirme ortamındaki varsayılan bağlantıyla çalışılıyorsa true döner.
func (c *Config) UsesDefaultDSN() bool {
	return c.DatabaseDSN == defaultDSN
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
