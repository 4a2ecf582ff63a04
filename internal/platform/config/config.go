package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the LandAI server.
type Config struct {
	DBPath      string
	ServerPort  int
	LogLevel    string
	Environment string
	SentryDSN   string

	LLMEndpoint string
	LLMAPIKey   string
	LLMModels   []string

	SiteOrigin         string
	PublicURLFragment  bool
	PublicSanitizeHTML bool

	AuthTokenKey string
	AuthTokenTTL time.Duration

	GenerationTimeout time.Duration
	StoreTimeout      time.Duration

	RateLimit  RateLimitConfig
	Generation GenerationLimitConfig

	NotificationTTL time.Duration
	IdempotencyTTL  time.Duration
	ShutdownGrace   time.Duration
}

// RateLimitConfig configures the per-client HTTP limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
	// TrustProxyHeaders keys clients by X-Forwarded-For / X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxyHeaders bool
}

// GenerationLimitConfig configures the per-owner generation limiter.
type GenerationLimitConfig struct {
	PerMinute float64
	Burst     int
}

const (
	defaultDBPath            = "./data/landai.db"
	defaultServerPort        = 8080
	defaultLogLevel          = "info"
	defaultEnvironment       = "development"
	defaultSiteOrigin        = "http://localhost:8080"
	defaultAuthTokenTTL      = 24 * time.Hour
	defaultGenerationTimeout = 90 * time.Second
	defaultStoreTimeout      = 5 * time.Second
	defaultRateLimitRPS      = 5
	defaultRateLimitBurst    = 20
	defaultRateLimitTTL      = 10 * time.Minute
	defaultGenerationPerMin  = 6
	defaultGenerationBurst   = 3
	defaultNotificationTTL   = 5 * time.Second
	defaultIdempotencyTTL    = 10 * time.Minute
	defaultShutdownGrace     = 10 * time.Second
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:       getEnv("DB_PATH", defaultDBPath),
		LogLevel:     getEnv("LOG_LEVEL", defaultLogLevel),
		Environment:  getEnv("ENV", defaultEnvironment),
		SentryDSN:    os.Getenv("SENTRY_DSN"),
		LLMEndpoint:  os.Getenv("LLM_ENDPOINT"),
		LLMAPIKey:    os.Getenv("LLM_API_KEY"),
		SiteOrigin:   strings.TrimRight(getEnv("SITE_ORIGIN", defaultSiteOrigin), "/"),
		AuthTokenKey: strings.TrimSpace(os.Getenv("AUTH_TOKEN_KEY")),
	}

	if modelsJSON := os.Getenv("LLM_MODELS"); modelsJSON != "" {
		models, err := parseModels(modelsJSON)
		if err != nil {
			return nil, eris.Wrap(err, "parsing LLM_MODELS")
		}
		cfg.LLMModels = models
	}

	var err error
	if cfg.ServerPort, err = intEnv("SERVER_PORT", defaultServerPort); err != nil {
		return nil, err
	}
	if cfg.PublicURLFragment, err = boolEnv("PUBLIC_URL_FRAGMENT", true); err != nil {
		return nil, err
	}
	if cfg.PublicSanitizeHTML, err = boolEnv("PUBLIC_SANITIZE_HTML", false); err != nil {
		return nil, err
	}
	if cfg.RateLimit.TrustProxyHeaders, err = boolEnv("TRUST_PROXY_HEADERS", false); err != nil {
		return nil, err
	}
	if cfg.AuthTokenTTL, err = durationEnv("AUTH_TOKEN_TTL", defaultAuthTokenTTL); err != nil {
		return nil, err
	}
	if cfg.GenerationTimeout, err = durationEnv("GENERATION_TIMEOUT", defaultGenerationTimeout); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = durationEnv("STORE_TIMEOUT", defaultStoreTimeout); err != nil {
		return nil, err
	}
	if cfg.RateLimit.RequestsPerSecond, err = floatEnv("RATE_LIMIT_RPS", defaultRateLimitRPS); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Burst, err = intEnv("RATE_LIMIT_BURST", defaultRateLimitBurst); err != nil {
		return nil, err
	}
	if cfg.RateLimit.ClientTTL, err = durationEnv("RATE_LIMIT_CLIENT_TTL", defaultRateLimitTTL); err != nil {
		return nil, err
	}
	if cfg.Generation.PerMinute, err = floatEnv("GENERATION_RATE_PER_MINUTE", defaultGenerationPerMin); err != nil {
		return nil, err
	}
	if cfg.Generation.Burst, err = intEnv("GENERATION_BURST", defaultGenerationBurst); err != nil {
		return nil, err
	}
	if cfg.NotificationTTL, err = durationEnv("NOTIFICATION_TTL", defaultNotificationTTL); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = durationEnv("SHUTDOWN_GRACE", defaultShutdownGrace); err != nil {
		return nil, err
	}

	if cfg.AuthTokenKey != "" && len(cfg.AuthTokenKey) != 64 {
		return nil, eris.Errorf("invalid AUTH_TOKEN_KEY value: expected 64 hex characters, got %d", len(cfg.AuthTokenKey))
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := getEnv(key, strconv.Itoa(fallback))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := getEnv(key, strconv.FormatFloat(fallback, 'f', -1, 64))
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := getEnv(key, strconv.FormatBool(fallback))
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, fallback.String())
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	if value <= 0 {
		return 0, eris.Errorf("invalid %s value: %s must be positive", key, raw)
	}
	return value, nil
}

func parseModels(raw string) ([]string, error) {
	// Accept either a JSON array of strings or an object with a `models` field.
	var arrayInput []string
	if err := json.Unmarshal([]byte(raw), &arrayInput); err == nil {
		return arrayInput, nil
	}

	var objectInput struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal([]byte(raw), &objectInput); err != nil {
		return nil, eris.Wrap(err, "decoding JSON")
	}

	if len(objectInput.Models) == 0 {
		return nil, eris.New("models list is empty")
	}

	return objectInput.Models, nil
}
