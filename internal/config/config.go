package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment
// variables.
type Config struct {
	DatabaseURL string
	HTTPPort    string
	AdminAPIKey string

	QuoteURL            string
	QuoteRetryMax       int
	QuoteRetryBaseDelay time.Duration
	QuoteCacheTTL       time.Duration
	QuoteWorkerInterval time.Duration

	SnapshotWorkerInterval time.Duration

	QuickEntryFutureGrace time.Duration

	AllowOverdraft      bool
	MaxConcentrationPct int

	ExportXLSXDir         string
	SheetsSpreadsheetID   string
	SheetsCredentialsJSON string
}

// Load reads configuration from environment variables with sensible
// defaults. The overdraft and concentration knobs default conservative:
// no overdraft, no concentration limit.
func Load() Config {
	return Config{
		DatabaseURL: envOrDefaultWarn("DATABASE_URL", ""),
		HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey: envOrDefault("ADMIN_API_KEY", ""),

		QuoteURL:            envOrDefault("QUOTE_URL", "https://quotes.folioapp.dev/api/v1"),
		QuoteRetryMax:       envOrDefaultInt("QUOTE_RETRY_MAX", 3),
		QuoteRetryBaseDelay: envOrDefaultDuration("QUOTE_RETRY_BASE_DELAY", 2*time.Second),
		QuoteCacheTTL:       envOrDefaultDuration("QUOTE_CACHE_TTL", 60*time.Second),
		QuoteWorkerInterval: envOrDefaultDuration("QUOTE_WORKER_INTERVAL", 15*time.Minute),

		SnapshotWorkerInterval: envOrDefaultDuration("SNAPSHOT_WORKER_INTERVAL", 24*time.Hour),

		QuickEntryFutureGrace: envOrDefaultDuration("QUICKENTRY_FUTURE_GRACE", 24*time.Hour),

		AllowOverdraft:      envOrDefaultBool("ALLOW_OVERDRAFT", false),
		MaxConcentrationPct: envOrDefaultInt("MAX_CONCENTRATION_PCT", 0),

		ExportXLSXDir:         envOrDefault("EXPORT_XLSX_DIR", ""),
		SheetsSpreadsheetID:   envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentialsJSON: envOrDefault("SHEETS_CREDENTIALS_JSON", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return b
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
