package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Inventory  InventoryConfig
	Classifier ClassifierConfig
	Search     SearchConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type InventoryConfig struct {
	SeedDemo       bool
	UploadMaxBytes int64
}

type ClassifierConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries uint64
	CacheTTL   time.Duration
}

type SearchConfig struct {
	CaseInsensitiveAIName bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// IsDevelopment reports whether the server runs outside production
func (c ServerConfig) IsDevelopment() bool {
	return c.Env != "production"
}

// Addr returns host:port of the Redis server
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Load reads configuration from the environment and an optional .env file.
// With APP_ENV=local the .env file is also exported into the process env.
func Load(path ...string) (*Config, error) {
	const op = "config.Load"

	if shouldLoadDotenv() {
		if err := godotenv.Load(path...); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: load .env: %w", op, err)
		}
	}

	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Printf("Warning: Could not read config file: %v", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("INVENTORY_SEED_DEMO", true)
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash-image")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("CLASSIFIER_TIMEOUT", "30s")
	v.SetDefault("CLASSIFIER_MAX_RETRIES", 0)
	v.SetDefault("CLASSIFIER_CACHE_TTL", "1h")
	v.SetDefault("SEARCH_AI_NAME_CASE_INSENSITIVE", false)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_REQUESTS", 30)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Inventory: InventoryConfig{
			SeedDemo:       v.GetBool("INVENTORY_SEED_DEMO"),
			UploadMaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		},
		Classifier: ClassifierConfig{
			APIKey:     v.GetString("GEMINI_API_KEY"),
			Model:      v.GetString("GEMINI_MODEL"),
			BaseURL:    v.GetString("GEMINI_BASE_URL"),
			Timeout:    v.GetDuration("CLASSIFIER_TIMEOUT"),
			MaxRetries: v.GetUint64("CLASSIFIER_MAX_RETRIES"),
			CacheTTL:   v.GetDuration("CLASSIFIER_CACHE_TTL"),
		},
		Search: SearchConfig{
			CaseInsensitiveAIName: v.GetBool("SEARCH_AI_NAME_CASE_INSENSITIVE"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
	}
}

func (c *Config) validate() error {
	if c.Inventory.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.Inventory.UploadMaxBytes)
	}
	if c.Classifier.Timeout < 0 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must not be negative, got %s", c.Classifier.Timeout)
	}
	if c.Redis.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive when Redis is enabled")
	}
	return nil
}

func shouldLoadDotenv() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "local")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
