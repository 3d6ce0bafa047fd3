package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Payroll  PayrollConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// RedisConfig is optional. Without an address the service runs with
// in-process locking only.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	MaxRetries int
	LockPrefix string
}

type KafkaConfig struct {
	Brokers        []string
	RelayInterval  time.Duration
	RelayBatchSize int
}

type PayrollConfig struct {
	CalcRetries        int
	LockTTL            time.Duration
	OvertimeEnabled    bool
	OvertimeMultiplier decimal.Decimal
	HoursPerDay        decimal.Decimal
}

func Load() (*Config, error) {
	// A missing .env is fine outside development; the environment wins anyway.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded:", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	dbMaxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	dbConnLifetime, err := time.ParseDuration(getEnv("DB_MAX_CONN_LIFETIME", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONN_LIFETIME: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            dbPort,
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Name:            getEnv("DB_NAME", "payroll_tax"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxConns:        int32(dbMaxConns),
		MaxConnLifetime: dbConnLifetime,
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	redisRetries, err := strconv.Atoi(getEnv("REDIS_MAX_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_MAX_RETRIES: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:       getEnv("REDIS_ADDR", ""),
		Password:   getEnv("REDIS_PASSWORD", ""),
		DB:         redisDB,
		MaxRetries: redisRetries,
		LockPrefix: getEnv("REDIS_LOCK_PREFIX", "payroll-tax"),
	}

	// Kafka configuration
	relayInterval, err := time.ParseDuration(getEnv("OUTBOX_RELAY_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_RELAY_INTERVAL: %w", err)
	}
	relayBatch, err := strconv.Atoi(getEnv("OUTBOX_RELAY_BATCH_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_RELAY_BATCH_SIZE: %w", err)
	}

	config.Kafka = KafkaConfig{
		Brokers:        getEnvSlice("KAFKA_BROKERS"),
		RelayInterval:  relayInterval,
		RelayBatchSize: relayBatch,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Payroll configuration
	calcRetries, err := strconv.Atoi(getEnv("TAX_CALC_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid TAX_CALC_RETRIES: %w", err)
	}
	lockTTL, err := time.ParseDuration(getEnv("TAX_CALC_LOCK_TTL", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid TAX_CALC_LOCK_TTL: %w", err)
	}
	overtimeEnabled, err := strconv.ParseBool(getEnv("OVERTIME_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid OVERTIME_ENABLED: %w", err)
	}
	overtimeMultiplier, err := decimal.NewFromString(getEnv("OVERTIME_MULTIPLIER", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid OVERTIME_MULTIPLIER: %w", err)
	}
	hoursPerDay, err := decimal.NewFromString(getEnv("OVERTIME_HOURS_PER_DAY", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid OVERTIME_HOURS_PER_DAY: %w", err)
	}

	config.Payroll = PayrollConfig{
		CalcRetries:        calcRetries,
		LockTTL:            lockTTL,
		OvertimeEnabled:    overtimeEnabled,
		OvertimeMultiplier: overtimeMultiplier,
		HoursPerDay:        hoursPerDay,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}
	if c.Payroll.CalcRetries < 0 {
		return fmt.Errorf("TAX_CALC_RETRIES must not be negative")
	}
	if c.Payroll.OvertimeEnabled && !c.Payroll.HoursPerDay.IsPositive() {
		return fmt.Errorf("OVERTIME_HOURS_PER_DAY must be positive when overtime is enabled")
	}
	if c.Kafka.RelayBatchSize <= 0 {
		return fmt.Errorf("OUTBOX_RELAY_BATCH_SIZE must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// RedisEnabled reports whether distributed locking is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// KafkaEnabled reports whether outbox events are relayed to a broker.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
