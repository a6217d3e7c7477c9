package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime settings read from the environment.
type Config struct {
	AppEnv    string
	LogLevel  string
	LogFormat string

	HTTPListenAddr string
	APIBasePath    string

	DatabaseURL    string
	DatabaseSchema string

	MetricsNamespace string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	PanelBaseURL   string
	PanelToken     string
	PanelSecret    string
	PanelTimeout   time.Duration
	PanelCacheTTL  time.Duration
	PanelRateLimit float64

	WhatsAppStorePath string
	WhatsAppLogLevel  string

	SeedAdmin     bool
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Load reads the configuration, applying defaults for unset variables.
func Load() (Config, error) {
	cfg := Config{
		AppEnv:            getenvDefault("APP_ENV", "development"),
		LogLevel:          getenvDefault("LOG_LEVEL", "info"),
		LogFormat:         getenvDefault("LOG_FORMAT", "text"),
		HTTPListenAddr:    getenvDefault("HTTP_LISTEN_ADDR", ":8080"),
		APIBasePath:       getenvDefault("API_BASE_PATH", "/api"),
		DatabaseURL:       getenvDefault("DATABASE_URL", "./db/nextflow.db"),
		DatabaseSchema:    strings.TrimSpace(os.Getenv("DATABASE_SCHEMA")),
		MetricsNamespace:  getenvDefault("METRICS_NAMESPACE", "nextflow"),
		RedisAddr:         strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		PanelBaseURL:      getenvDefault("PANEL_BASE_URL", "https://api.painelcliente.com"),
		PanelToken:        strings.TrimSpace(os.Getenv("PANEL_TOKEN")),
		PanelSecret:       strings.TrimSpace(os.Getenv("PANEL_SECRET")),
		WhatsAppStorePath: strings.TrimSpace(os.Getenv("WHATSAPP_STORE_PATH")),
		WhatsAppLogLevel:  getenvDefault("WHATSAPP_LOG_LEVEL", "INFO"),
		AdminName:         getenvDefault("ADMIN_NAME", "Administrador"),
		AdminEmail:        getenvDefault("ADMIN_EMAIL", "admin@nextflow.com"),
		AdminPassword:     getenvDefault("ADMIN_PASSWORD", "admin123"),
	}

	var err error
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.RedisTLS, err = boolEnv("REDIS_TLS", false); err != nil {
		return Config{}, err
	}
	if cfg.PanelTimeout, err = durationEnv("PANEL_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PanelCacheTTL, err = durationEnv("PANEL_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.PanelRateLimit, err = floatEnv("PANEL_RATE_LIMIT", 5); err != nil {
		return Config{}, err
	}
	if cfg.SeedAdmin, err = boolEnv("SEED_ADMIN", true); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func floatEnv(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

// durationEnv accepts Go durations ("15s") or a bare number of seconds.
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}
