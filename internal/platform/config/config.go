package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration for the API and the CLI.
type Config struct {
	Port string

	// StorageBackend is one of "memory", "postgres" or "sqlite".
	StorageBackend string
	DatabaseURL    string
	SQLitePath     string

	LogLevel  string
	LogFormat string

	ImportMaxRows        int
	ImportMaxUploadBytes int64

	// DevSubject is the owner used when a request carries no X-Importer-Subject.
	// Empty means the header is required.
	DevSubject string

	IdempotencyTTL time.Duration
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into the
// process environment. Variables that are already set are not overridden, and a
// missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Port:                 getenv("PORT", "8080"),
		StorageBackend:       strings.ToLower(getenv("STORAGE_BACKEND", "memory")),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		SQLitePath:           getenv("SQLITE_PATH", "leads.db"),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		LogFormat:            strings.ToLower(getenv("LOG_FORMAT", "json")),
		ImportMaxRows:        5000,
		ImportMaxUploadBytes: 10 << 20,
		DevSubject:           os.Getenv("DEV_SUBJECT"),
		IdempotencyTTL:       24 * time.Hour,
	}

	switch cfg.StorageBackend {
	case "memory", "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be one of memory, postgres, sqlite (got %q)", cfg.StorageBackend)
	}

	switch cfg.LogFormat {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT must be json or console (got %q)", cfg.LogFormat)
	}

	if v := os.Getenv("IMPORT_MAX_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("IMPORT_MAX_ROWS must be a positive integer (got %q)", v)
		}
		cfg.ImportMaxRows = n
	}
	if v := os.Getenv("IMPORT_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("IMPORT_MAX_UPLOAD_BYTES must be a positive integer (got %q)", v)
		}
		cfg.ImportMaxUploadBytes = n
	}
	if v := os.Getenv("IDEMPOTENCY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("IDEMPOTENCY_TTL must be a duration (e.g. 24h): %w", err)
		}
		cfg.IdempotencyTTL = d
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
