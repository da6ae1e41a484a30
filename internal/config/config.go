package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App      *AppConfig      `yaml:"app"`
	Log      *LogConfig      `yaml:"log"`
	Database *DatabaseConfig `yaml:"database"`
	Redis    *RedisConfig    `yaml:"redis"`
	Payment  *PaymentConfig  `yaml:"payment"`
	Security *SecurityConfig `yaml:"security"`
	Referral *ReferralConfig `yaml:"referral"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	BaseURL     string `yaml:"base_url"`
	Debug       bool   `yaml:"debug"`
	Currency    string `yaml:"currency"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	Caller bool   `yaml:"caller"`
}

type SecurityConfig struct {
	JWTSecret             string   `yaml:"jwt_secret"`
	AdminRole             string   `yaml:"admin_role"`
	CORSAllowedOrigins    []string `yaml:"cors_allowed_origins"`
	TrustedProxies        []string `yaml:"trusted_proxies"`
	PublicRateLimitPerSec int      `yaml:"public_rate_limit_per_sec"`
	PublicRateLimitBurst  int      `yaml:"public_rate_limit_burst"`
}

func Load() (*Config, error) {
	config := &Config{
		App:      loadAppConfig(),
		Log:      loadLogConfig(),
		Database: loadDatabaseConfig(),
		Redis:    loadRedisConfig(),
		Payment:  loadPaymentConfig(),
		Security: loadSecurityConfig(),
		Referral: loadReferralConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if IsProduction() && c.Security.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.Referral.CaptureTTL <= 0 {
		return fmt.Errorf("REFERRAL_CAPTURE_TTL must be positive")
	}
	if c.Referral.LegacyDiscount < 0 {
		return fmt.Errorf("REFERRAL_LEGACY_DISCOUNT must not be negative")
	}
	if c.Referral.RetryMaxAttempts < 1 {
		return fmt.Errorf("REFERRAL_RETRY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

const defaultJWTSecret = "dev-only-jwt-secret"

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:        getEnv("APP_NAME", "storefront"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnvAsInt("APP_PORT", 8080),
		Host:        getEnv("APP_HOST", "localhost"),
		BaseURL:     getEnv("APP_BASE_URL", "http://localhost:5173"),
		Debug:       getEnvAsBool("APP_DEBUG", true),
		Currency:    getEnv("APP_CURRENCY", "USD"),
	}
}

func loadLogConfig() *LogConfig {
	return &LogConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
		Output: getEnv("LOG_OUTPUT", "stdout"),
		Caller: getEnvAsBool("LOG_CALLER", false),
	}
}

func loadSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		JWTSecret:             getEnv("JWT_SECRET", defaultJWTSecret),
		AdminRole:             getEnv("ADMIN_ROLE", "admin"),
		CORSAllowedOrigins:    getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:        getEnvAsSlice("TRUSTED_PROXIES", []string{}),
		PublicRateLimitPerSec: getEnvAsInt("PUBLIC_RATE_LIMIT_PER_SEC", 5),
		PublicRateLimitBurst:  getEnvAsInt("PUBLIC_RATE_LIMIT_BURST", 20),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func IsProduction() bool {
	return getEnv("APP_ENV", "development") == "production"
}

func IsDevelopment() bool {
	return getEnv("APP_ENV", "development") == "development"
}

func IsTest() bool {
	return getEnv("APP_ENV", "development") == "test"
}
