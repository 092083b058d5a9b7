package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAPITimeout = 15 * time.Second
	defaultOpsAddr    = ":9090"
	defaultTimezone   = "America/Mexico_City"
)

type Config struct {
	TelegramToken string        `mapstructure:"TELEGRAM_TOKEN"`
	DBDSN         string        `mapstructure:"DB_DSN"`
	Environment   string        `mapstructure:"ENV"`
	APIBaseURL    string        `mapstructure:"API_BASE_URL"`
	APITimeout    time.Duration `mapstructure:"API_TIMEOUT"`
	RedisURL      string        `mapstructure:"REDIS_URL"`
	OpsAddr       string        `mapstructure:"OPS_ADDR"`
	Timezone      string        `mapstructure:"TIMEZONE"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`

	Location *time.Location `mapstructure:"-"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфигурацию из переменных окружения
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		Environment:   os.Getenv("ENV"),
		APIBaseURL:    os.Getenv("API_BASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		OpsAddr:       os.Getenv("OPS_ADDR"),
		Timezone:      os.Getenv("TIMEZONE"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		APITimeout:    defaultAPITimeout,
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.OpsAddr == "" {
		cfg.OpsAddr = defaultOpsAddr
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaultTimezone
	}

	if raw := os.Getenv("API_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parse API_TIMEOUT: %w", err)
		}
		if timeout <= 0 {
			return nil, fmt.Errorf("API_TIMEOUT must be positive, got %s", raw)
		}
		cfg.APITimeout = timeout
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	// Проверяем обязательные поля
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required but not set")
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required but not set")
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// IsProduction проверяет, запущен ли бот в продакшене
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
