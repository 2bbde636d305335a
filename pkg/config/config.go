package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	RxNorm         RxNormConfig
	OpenAI         OpenAIConfig
	Cache          CacheConfig
	Breaker        BreakerConfig
	Recommendation RecommendationConfig
	OTEL           OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds configuration for the local NDC directory mirror
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RxNormConfig holds configuration for the drug terminology service
type RxNormConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimitRPM   int
	RateLimitBurst int
}

// OpenAIConfig holds configuration for the AI recommendation advisor
type OpenAIConfig struct {
	APIKey         string
	Model          string
	Timeout        time.Duration
	Enabled        bool
	RateLimitRPM   int
	RateLimitBurst int
}

// CacheConfig holds cache TTL configuration
type CacheConfig struct {
	Enabled             bool
	NormalizationTTL    time.Duration
	PackageDirectoryTTL time.Duration
}

// BreakerConfig holds circuit breaker configuration for the AI advisor
type BreakerConfig struct {
	FailureThreshold uint32
	Cooldown         time.Duration
}

// RecommendationConfig holds recommendation policy configuration
type RecommendationConfig struct {
	// DirectoryProvider selects the package directory source: "rxnorm" or "postgres"
	DirectoryProvider string
	// MinConfidence is the acceptance floor for a normalization strategy's candidates
	MinConfidence float64
	// AIQuantityThreshold is the required quantity at or above which AI enhancement kicks in
	AIQuantityThreshold float64
	// BatchConcurrency bounds concurrent lookups in batch normalization
	BatchConcurrency int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "ndc_directory"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RxNorm: RxNormConfig{
			BaseURL:        getEnv("RXNORM_BASE_URL", "https://rxnav.nlm.nih.gov/REST"),
			Timeout:        getEnvAsDuration("RXNORM_TIMEOUT", 10*time.Second),
			RateLimitRPM:   getEnvAsInt("RXNORM_RATE_LIMIT_RPM", 1200),
			RateLimitBurst: getEnvAsInt("RXNORM_RATE_LIMIT_BURST", 20),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:        getEnvAsDuration("OPENAI_TIMEOUT", 15*time.Second),
			Enabled:        getEnvAsBool("AI_ENHANCEMENT_ENABLED", true),
			RateLimitRPM:   getEnvAsInt("OPENAI_RATE_LIMIT_RPM", 60),
			RateLimitBurst: getEnvAsInt("OPENAI_RATE_LIMIT_BURST", 5),
		},
		Cache: CacheConfig{
			Enabled:             getEnvAsBool("CACHE_ENABLED", true),
			NormalizationTTL:    getEnvAsDuration("CACHE_NORMALIZATION_TTL", 24*time.Hour),
			PackageDirectoryTTL: getEnvAsDuration("CACHE_PACKAGE_DIRECTORY_TTL", 6*time.Hour),
		},
		Breaker: BreakerConfig{
			FailureThreshold: uint32(getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5)),
			Cooldown:         getEnvAsDuration("BREAKER_COOLDOWN", 30*time.Second),
		},
		Recommendation: RecommendationConfig{
			DirectoryProvider:   getEnv("DIRECTORY_PROVIDER", "rxnorm"),
			MinConfidence:       getEnvAsFloat("NORMALIZER_MIN_CONFIDENCE", 0.5),
			AIQuantityThreshold: getEnvAsFloat("AI_QUANTITY_THRESHOLD", 90),
			BatchConcurrency:    getEnvAsInt("NORMALIZER_BATCH_CONCURRENCY", 4),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "rx-recommender"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ServerAddr returns the HTTP listen address
func (c *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
