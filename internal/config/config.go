package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	AppEnv   string
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Server   ServerConfig
	Page     PageConfig
	Storage  StorageConfig
	AWS      AWSConfig
	TimeZone string
}

// LogConfig selects zerolog's level and output format ("json" or "console").
type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string //nolint:gosec // G117: DB connection config
	DBName         string
	SSLMode        string
	MaxConns       int
	QueryTimeout   time.Duration
	CredentialsARN string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	UploadMaxBytes int64
}

type PageConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// StorageConfig selects where uploaded photos are written.
type StorageConfig struct {
	Backend   string
	LocalPath string
	S3Bucket  string
	Timeout   time.Duration
}

// AWSConfig is shared by the S3 backend and the Secrets Manager bootstrap.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string //nolint:gosec // G117: AWS credential config
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("FIELDOPS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("FIELDOPS_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	queryTimeout, err := getEnvDuration("FIELDOPS_DB_QUERY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("FIELDOPS_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("FIELDOPS_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshTTL, err := getEnvDuration("FIELDOPS_JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("FIELDOPS_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("FIELDOPS_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rps, err := getEnvFloat("FIELDOPS_RATE_LIMIT_RPS", 50)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	burst, err := getEnvInt("FIELDOPS_RATE_LIMIT_BURST", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	uploadMax, err := getEnvInt("FIELDOPS_UPLOAD_MAX_BYTES", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	pageDefault, err := getEnvInt("FIELDOPS_PAGE_DEFAULT_LIMIT", 50)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	pageMax, err := getEnvInt("FIELDOPS_PAGE_MAX_LIMIT", 200)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	storageTimeout, err := getEnvDuration("FIELDOPS_STORAGE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		AppEnv: getEnv("FIELDOPS_APP_ENV", "local"),
		Log: LogConfig{
			Level:  getEnv("FIELDOPS_LOG_LEVEL", "info"),
			Format: getEnv("FIELDOPS_LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("FIELDOPS_DB_HOST", "localhost"),
			Port:           dbPort,
			User:           getEnv("FIELDOPS_DB_USER", "fieldops"),
			Password:       getEnv("FIELDOPS_DB_PASSWORD", ""),
			DBName:         getEnv("FIELDOPS_DB_NAME", "fieldops_dev"),
			SSLMode:        getEnv("FIELDOPS_DB_SSLMODE", "disable"),
			MaxConns:       dbMaxConns,
			QueryTimeout:   queryTimeout,
			CredentialsARN: getEnv("FIELDOPS_DB_CREDENTIALS_ARN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("FIELDOPS_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("FIELDOPS_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:     getEnv("FIELDOPS_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Server: ServerConfig{
			Addr:           getEnv("FIELDOPS_SERVER_ADDR", ":8080"),
			ReadTimeout:    readTimeout,
			WriteTimeout:   writeTimeout,
			CORSOrigins:    getEnvList("FIELDOPS_CORS_ORIGINS", []string{"http://localhost:3000"}),
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
			UploadMaxBytes: int64(uploadMax),
		},
		Page: PageConfig{
			DefaultLimit: pageDefault,
			MaxLimit:     pageMax,
		},
		Storage: StorageConfig{
			Backend:   getEnv("FIELDOPS_STORAGE_BACKEND", "local"),
			LocalPath: getEnv("FIELDOPS_STORAGE_LOCAL_PATH", "./data/photos"),
			S3Bucket:  getEnv("FIELDOPS_S3_BUCKET", ""),
			Timeout:   storageTimeout,
		},
		AWS: AWSConfig{
			Region:          getEnv("FIELDOPS_AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("FIELDOPS_AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("FIELDOPS_AWS_SECRET_ACCESS_KEY", ""),
		},
		TimeZone: getEnv("FIELDOPS_TIMEZONE", "Local"),
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("FIELDOPS_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("FIELDOPS_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.SSLMode == "disable" && c.AppEnv != "local" {
		log.Warn().Str("app_env", c.AppEnv).
			Msg("FIELDOPS_DB_SSLMODE=disable is insecure outside local development; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("FIELDOPS_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("FIELDOPS_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("FIELDOPS_DB_QUERY_TIMEOUT must be positive, got %s", c.Database.QueryTimeout)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("FIELDOPS_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("FIELDOPS_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("FIELDOPS_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("FIELDOPS_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("FIELDOPS_RATE_LIMIT_RPS and FIELDOPS_RATE_LIMIT_BURST must be positive, got %g/%d",
			c.Server.RateLimitRPS, c.Server.RateLimitBurst)
	}
	if c.Server.UploadMaxBytes < 1 {
		return fmt.Errorf("FIELDOPS_UPLOAD_MAX_BYTES must be positive, got %d", c.Server.UploadMaxBytes)
	}
	if c.Page.DefaultLimit < 1 {
		return fmt.Errorf("FIELDOPS_PAGE_DEFAULT_LIMIT must be >= 1, got %d", c.Page.DefaultLimit)
	}
	if c.Page.MaxLimit < c.Page.DefaultLimit {
		return fmt.Errorf("FIELDOPS_PAGE_MAX_LIMIT must be >= FIELDOPS_PAGE_DEFAULT_LIMIT, got %d < %d",
			c.Page.MaxLimit, c.Page.DefaultLimit)
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalPath == "" {
			return errors.New("FIELDOPS_STORAGE_LOCAL_PATH is required for the local backend")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return errors.New("FIELDOPS_S3_BUCKET is required for the s3 backend")
		}
	default:
		return fmt.Errorf("FIELDOPS_STORAGE_BACKEND must be 'local' or 's3', got %q", c.Storage.Backend)
	}
	if c.Storage.Timeout <= 0 {
		return fmt.Errorf("FIELDOPS_STORAGE_TIMEOUT must be positive, got %s", c.Storage.Timeout)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Location resolves TimeZone, which governs how dates are written and how
// calendar days are bounded.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("FIELDOPS_TIMEZONE %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dsnValue(c.Host), c.Port, dsnValue(c.User), dsnValue(c.Password), dsnValue(c.DBName), dsnValue(c.SSLMode),
	)
}

// dsnValue quotes a keyword/value connection parameter when needed.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
