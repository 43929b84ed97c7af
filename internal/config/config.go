package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	OCR      OCRConfig
	Extract  ExtractConfig
	Storage  StorageConfig
	Worker   WorkerConfig
	Webhook  WebhookConfig
	LogLevel slog.Level
}

type ServerConfig struct {
	Host           string
	Port           int
	Headless       bool
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	APIKeys      []string
	APIKeyHeader string
	JWTSecret    string
}

// Enabled reports whether any authentication scheme is configured.
func (a AuthConfig) Enabled() bool {
	return len(a.APIKeys) > 0 || a.JWTSecret != ""
}

type OCRConfig struct {
	Engine        string // "tesseract" or "gosseract"
	TesseractPath string
	PdftoppmPath  string
	Language      string
	DPI           int
	Workers       int
}

type ExtractConfig struct {
	MinTextChars int
	Workers      int
	CacheTTL     time.Duration
}

type StorageConfig struct {
	Backend     string // "local" or "supabase"
	LocalDir    string
	SupabaseURL string
	SupabaseKey string
	Bucket      string
}

type WorkerConfig struct {
	Concurrency int
	BatchTTL    time.Duration
}

type WebhookConfig struct {
	Secret  string
	Timeout time.Duration
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8501)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	headless, err := getEnvBool("SERVER_HEADLESS", true)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_HEADLESS: %w", err)
	}

	maxUploadMB, err := getEnvInt("MAX_UPLOAD_MB", 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}

	rps, err := getEnvInt("RATE_LIMIT_RPS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	dpi, err := getEnvInt("OCR_DPI", 300)
	if err != nil {
		return nil, fmt.Errorf("invalid OCR_DPI: %w", err)
	}

	ocrWorkers, err := getEnvInt("OCR_WORKERS", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid OCR_WORKERS: %w", err)
	}

	minText, err := getEnvInt("EXTRACT_MIN_TEXT_CHARS", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid EXTRACT_MIN_TEXT_CHARS: %w", err)
	}

	extractWorkers, err := getEnvInt("EXTRACT_WORKERS", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid EXTRACT_WORKERS: %w", err)
	}

	cacheTTL, err := getEnvDuration("CACHE_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	concurrency, err := getEnvInt("WORKER_CONCURRENCY", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	batchTTL, err := getEnvDuration("BATCH_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_TTL: %w", err)
	}

	webhookTimeout, err := getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			Headless:       headless,
			MaxUploadBytes: int64(maxUploadMB) << 20,
			RateLimitRPS:   float64(rps),
			RateLimitBurst: burst,
			CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			APIKeys:      splitList(getEnv("AUTH_API_KEYS", "")),
			APIKeyHeader: getEnv("AUTH_API_KEY_HEADER", "X-API-Key"),
			JWTSecret:    getEnv("AUTH_JWT_SECRET", ""),
		},
		OCR: OCRConfig{
			Engine:        getEnv("OCR_ENGINE", "tesseract"),
			TesseractPath: getEnv("OCR_TESSERACT_PATH", "tesseract"),
			PdftoppmPath:  getEnv("OCR_PDFTOPPM_PATH", "pdftoppm"),
			Language:      getEnv("OCR_LANGUAGE", "eng"),
			DPI:           dpi,
			Workers:       ocrWorkers,
		},
		Extract: ExtractConfig{
			MinTextChars: minText,
			Workers:      extractWorkers,
			CacheTTL:     cacheTTL,
		},
		Storage: StorageConfig{
			Backend:     getEnv("STORAGE_BACKEND", "local"),
			LocalDir:    getEnv("STORAGE_LOCAL_DIR", "/tmp/pdfprecheck"),
			SupabaseURL: getEnv("SUPABASE_URL", ""),
			SupabaseKey: getEnv("SUPABASE_SERVICE_KEY", ""),
			Bucket:      getEnv("STORAGE_BUCKET", "precheck"),
		},
		Worker: WorkerConfig{
			Concurrency: concurrency,
			BatchTTL:    batchTTL,
		},
		Webhook: WebhookConfig{
			Secret:  getEnv("WEBHOOK_SECRET", ""),
			Timeout: webhookTimeout,
		},
		LogLevel: level,
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("SERVER_PORT out of range: %d", c.Server.Port))
	}
	if c.Server.MaxUploadBytes < 1<<20 {
		problems = append(problems, "MAX_UPLOAD_MB must be >= 1")
	}
	if c.OCR.Workers < 1 {
		problems = append(problems, "OCR_WORKERS must be >= 1")
	}
	if c.Extract.Workers < 1 {
		problems = append(problems, "EXTRACT_WORKERS must be >= 1")
	}
	switch c.Storage.Backend {
	case "local":
	case "supabase":
		if c.Storage.SupabaseURL == "" || c.Storage.SupabaseKey == "" {
			problems = append(problems, "SUPABASE_URL and SUPABASE_SERVICE_KEY required for supabase storage")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
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
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}
