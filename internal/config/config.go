package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Store    StoreConfig
	Queue    QueueConfig
	Intake   IntakeConfig
}

type ServerConfig struct {
	Host           string
	Port           int `validate:"min=1,max=65535"`
	CORSOrigins    []string
	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"gt=0"`
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

type DatabaseConfig struct {
	URL      string
	MaxConns int `validate:"gt=0"`
	MinConns int `validate:"gte=0,ltefield=MaxConns"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int `validate:"gte=0"`
}

type AuthConfig struct {
	JWTSecret string
	// RequireJWT guards /api/v1 with bearer tokens; the Event Grid webhook
	// is authenticated by EventGridSecret instead.
	RequireJWT      bool
	EventGridSecret string
}

// Credential modes for the chat completion endpoint.
const (
	CredentialManagedIdentity   = "managed_identity"
	CredentialClientCredentials = "client_credentials"
	CredentialAPIKey            = "api_key"
)

type LLMConfig struct {
	Endpoint       string `validate:"required,url"`
	Deployment     string `validate:"required"`
	APIVersion     string `validate:"required"`
	CredentialMode string `validate:"oneof=managed_identity client_credentials api_key"`
	APIKey         string
	TenantID       string
	ClientID       string
	ClientSecret   string
	Scope          string `validate:"required"`
	// IdentityEndpoint overrides the instance metadata token endpoint.
	IdentityEndpoint string
	Temperature      float32 `validate:"gte=0,lte=2"`
	MaxTokens        int     `validate:"gt=0"`
	MaxRetries       int     `validate:"gte=1"`
}

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

type StoreConfig struct {
	Backend  string `validate:"oneof=postgres sqlite memory"`
	Database string
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath          string        `validate:"required_if=Backend sqlite"`
	RawCollection       string        `validate:"required"`
	ProcessedCollection string        `validate:"required,nefield=RawCollection"`
	CacheTTL            time.Duration `validate:"gte=0"`
}

type QueueConfig struct {
	// Enabled routes processing through the asynq worker instead of
	// in-process goroutines.
	Enabled     bool
	Concurrency int `validate:"gt=0"`
}

type IntakeConfig struct {
	MaxUploadBytes int64 `validate:"gt=0"`
	SummaryWords   int   `validate:"gt=0"`
}

const cognitiveServicesSuffix = ".cognitiveservices.azure.com"

func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	temperature, err := getEnvFloat("AZURE_OPENAI_TEMPERATURE", 0.5)
	if err != nil {
		return nil, fmt.Errorf("invalid AZURE_OPENAI_TEMPERATURE: %w", err)
	}

	maxTokens, err := getEnvInt("AZURE_OPENAI_MAX_TOKENS", 4000)
	if err != nil {
		return nil, fmt.Errorf("invalid AZURE_OPENAI_MAX_TOKENS: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	cacheTTL, err := getEnvDuration("STORE_CACHE_TTL", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_CACHE_TTL: %w", err)
	}

	requireJWT, err := getEnvBool("AUTH_REQUIRE_JWT", false)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_REQUIRE_JWT: %w", err)
	}

	queueEnabled, err := getEnvBool("QUEUE_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_ENABLED: %w", err)
	}

	concurrency, err := getEnvInt("WORKER_CONCURRENCY", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}

	summaryWords, err := getEnvInt("SUMMARY_MAX_WORDS", 250)
	if err != nil {
		return nil, fmt.Errorf("invalid SUMMARY_MAX_WORDS: %w", err)
	}

	endpoint, rewritten := NormalizeEndpoint(getEnv("AZURE_OPENAI_ENDPOINT", ""))
	if rewritten {
		slog.Warn("rewrote cognitive services endpoint to openai endpoint", "endpoint", endpoint)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			RequireJWT:      requireJWT,
			EventGridSecret: getEnv("EVENT_GRID_WEBHOOK_SECRET", ""),
		},
		LLM: LLMConfig{
			Endpoint:         endpoint,
			Deployment:       getEnv("AZURE_OPENAI_CHAT_DEPLOYMENT", "gpt-4"),
			APIVersion:       getEnv("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
			CredentialMode:   getEnv("AZURE_CREDENTIAL_MODE", CredentialManagedIdentity),
			APIKey:           getEnv("AZURE_OPENAI_API_KEY", ""),
			TenantID:         getEnv("AZURE_TENANT_ID", ""),
			ClientID:         getEnv("AZURE_CLIENT_ID", ""),
			ClientSecret:     getEnv("AZURE_CLIENT_SECRET", ""),
			Scope:            getEnv("AZURE_OPENAI_SCOPE", "https://cognitiveservices.azure.com/.default"),
			IdentityEndpoint: getEnv("IDENTITY_ENDPOINT", ""),
			Temperature:      float32(temperature),
			MaxTokens:        maxTokens,
			MaxRetries:       maxRetries,
		},
		Store: StoreConfig{
			Backend:             getEnv("STORE_BACKEND", BackendPostgres),
			Database:            getEnv("STORE_DATABASE", "resume-processor"),
			SQLitePath:          getEnv("STORE_SQLITE_PATH", "data/resumes.db"),
			RawCollection:       getEnv("STORE_RAW_COLLECTION", "raw-resumes"),
			ProcessedCollection: getEnv("STORE_PROCESSED_COLLECTION", "processed-resumes"),
			CacheTTL:            cacheTTL,
		},
		Queue: QueueConfig{
			Enabled:     queueEnabled,
			Concurrency: concurrency,
		},
		Intake: IntakeConfig{
			MaxUploadBytes: int64(maxUpload),
			SummaryWords:   summaryWords,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SlogLevel maps the configured level name onto slog.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("validate config: %w", err)
	}

	var missing []string
	if c.Store.Backend == BackendPostgres && c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.RequireJWT && c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	switch c.LLM.CredentialMode {
	case CredentialAPIKey:
		if c.LLM.APIKey == "" {
			missing = append(missing, "AZURE_OPENAI_API_KEY")
		}
	case CredentialClientCredentials:
		if c.LLM.TenantID == "" {
			missing = append(missing, "AZURE_TENANT_ID")
		}
		if c.LLM.ClientID == "" {
			missing = append(missing, "AZURE_CLIENT_ID")
		}
		if c.LLM.ClientSecret == "" {
			missing = append(missing, "AZURE_CLIENT_SECRET")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

// NormalizeEndpoint rewrites a Cognitive Services host to the equivalent
// OpenAI host. The second return reports whether a rewrite happened.
func NormalizeEndpoint(endpoint string) (string, bool) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if !strings.Contains(endpoint, cognitiveServicesSuffix) {
		return endpoint, false
	}
	return strings.Replace(endpoint, cognitiveServicesSuffix, ".openai.azure.com", 1), true
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

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
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

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
