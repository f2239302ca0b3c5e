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

var ErrMissingEnv = errors.New("missing required env")

type BotConfig struct {
	Env     string
	LogFile string
	Port    string

	TelegramBotToken string
	WebhookURL       string

	EndpointsFile     string
	SolveEndpointName string
	SolveTimeout      time.Duration
	SessionTTL        time.Duration
	MaxImageBytes     int64
}

type ServiceConfig struct {
	Env     string
	LogFile string
	Port    string

	SolveEngine string

	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string

	// DatabaseURL пуст, если кэш решений выключен.
	DatabaseURL string
	CacheTTL    time.Duration
}

// LoadBot читает .env (если есть) и окружение бота.
func LoadBot() (*BotConfig, error) {
	_ = godotenv.Load()

	token, err := mustEnv("TELEGRAM_BOT_TOKEN")
	if err != nil {
		return nil, err
	}
	cfg := &BotConfig{
		Env:     getEnv("APP_ENV", "development"),
		LogFile: getEnv("LOG_FILE", ""),
		Port:    getEnv("PORT", "8080"),

		TelegramBotToken: token,
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		EndpointsFile:     getEnv("ENDPOINTS_FILE", "func2url.yaml"),
		SolveEndpointName: getEnv("SOLVE_ENDPOINT_NAME", "solve-task"),
	}
	if cfg.SolveTimeout, err = getEnvDuration("SOLVE_TIMEOUT", 90*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.MaxImageBytes, err = getEnvInt64("MAX_IMAGE_BYTES", 10<<20); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadService читает окружение solve-сервиса. Ключи движков не обязательны:
// без ключа сервис стартует и отвечает 500 на запросы к этому движку.
func LoadService() (*ServiceConfig, error) {
	_ = godotenv.Load()

	cfg := &ServiceConfig{
		Env:     getEnv("APP_ENV", "development"),
		LogFile: getEnv("LOG_FILE", ""),
		Port:    getEnv("PORT", "8000"),

		SolveEngine: strings.ToLower(getEnv("SOLVE_ENGINE", "gpt")),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
	}
	var err error
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mustEnv(k string) (string, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return "", fmt.Errorf("%w %s", ErrMissingEnv, k)
	}
	return v, nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvDuration(k string, def time.Duration) (time.Duration, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", k, err)
	}
	return d, nil
}

func getEnvInt64(k string, def int64) (int64, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", k, err)
	}
	return n, nil
}
